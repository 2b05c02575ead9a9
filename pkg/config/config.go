// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvAccessToken            = "ETSY_ACCESS_TOKEN"
	EnvShopID                 = "ETSY_SHOP_ID"
	EnvAPIKey                 = "ETSY_API_KEY"
	envAPIBaseURL             = "ETSY_API_BASE_URL"
	envListenAddr             = "ETSY_PROXY_LISTEN_ADDR"
	envRequestTimeout         = "ETSY_REQUEST_TIMEOUT"
	envInsecureSkipVerify     = "ETSY_API_INSECURE"
	envLogLevel               = "ETSY_PROXY_LOG_LEVEL"
	envServerReadTimeout      = "ETSY_PROXY_READ_TIMEOUT"
	envServerWriteTimeout     = "ETSY_PROXY_WRITE_TIMEOUT"
	envServerIdleTimeout      = "ETSY_PROXY_IDLE_TIMEOUT"
	envGracefulShutdown       = "ETSY_PROXY_GRACEFUL_SHUTDOWN"
	DefaultAPIBaseURL         = "https://openapi.etsy.com/v3"
	DefaultEnvFile            = ".env"
	defaultListenAddr         = ":3333"
	defaultLogLevel           = "info"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerIdleTimeout  = 120 * time.Second
	defaultGracefulShutdown   = 10 * time.Second
)

// Config captures runtime settings for the listings proxy. It is built once
// at startup and handed to constructors by value; nothing mutates it later.
type Config struct {
	AccessToken string
	ShopID      string
	APIKey      string
	APIBaseURL  *url.URL
	ListenAddr  string
	// RequestTimeout bounds a single upstream call. Zero keeps the
	// http.Client default, which never times out.
	RequestTimeout          time.Duration
	InsecureSkipVerify      bool
	LogLevel                string
	ServerReadTimeout       time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	GracefulShutdownTimeout time.Duration
}

// LoadEnvFiles merges dotenv files into the process environment. Variables
// already set in the environment win, and files that do not exist are
// skipped. With no arguments DefaultEnvFile in the working directory is read.
func LoadEnvFiles(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{DefaultEnvFile}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", name, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables. Only a malformed API
// base URL is rejected; absent credentials are reported through Missing.
// Credentials are used exactly as set, without trimming.
func Load() (Config, error) {
	baseRaw := getString(envAPIBaseURL, DefaultAPIBaseURL)
	base, err := url.Parse(strings.TrimSuffix(baseRaw, "/"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", envAPIBaseURL, err)
	}
	if !base.IsAbs() {
		return Config{}, errors.New(envAPIBaseURL + " must be absolute (scheme://host)")
	}

	cfg := Config{
		AccessToken:             os.Getenv(EnvAccessToken),
		ShopID:                  os.Getenv(EnvShopID),
		APIKey:                  os.Getenv(EnvAPIKey),
		APIBaseURL:              base,
		ListenAddr:              getString(envListenAddr, defaultListenAddr),
		RequestTimeout:          getDuration(envRequestTimeout, 0),
		InsecureSkipVerify:      getBool(envInsecureSkipVerify, false),
		LogLevel:                strings.ToLower(getString(envLogLevel, defaultLogLevel)),
		ServerReadTimeout:       getDuration(envServerReadTimeout, defaultServerReadTimeout),
		ServerWriteTimeout:      getDuration(envServerWriteTimeout, defaultServerWriteTimeout),
		ServerIdleTimeout:       getDuration(envServerIdleTimeout, defaultServerIdleTimeout),
		GracefulShutdownTimeout: getDuration(envGracefulShutdown, defaultGracefulShutdown),
	}

	return cfg, nil
}

// Missing returns the names of required variables that were empty at load time.
func (c Config) Missing() []string {
	var missing []string
	if c.AccessToken == "" {
		missing = append(missing, EnvAccessToken)
	}
	if c.ShopID == "" {
		missing = append(missing, EnvShopID)
	}
	return missing
}

// envOr parses the trimmed value of key, returning fallback when the
// variable is unset, blank or rejected by parse.
func envOr[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getString(key, fallback string) string {
	return envOr(key, fallback, func(s string) (string, error) { return s, nil })
}

func getBool(key string, fallback bool) bool {
	return envOr(key, fallback, strconv.ParseBool)
}

func getDuration(key string, fallback time.Duration) time.Duration {
	return envOr(key, fallback, func(s string) (time.Duration, error) {
		d, err := time.ParseDuration(s)
		if err == nil && d < 0 {
			return 0, fmt.Errorf("negative duration %s", s)
		}
		return d, err
	})
}
