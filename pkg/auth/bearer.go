// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"errors"
	"net/http"
)

const (
	// HeaderAuthorization carries the OAuth bearer credential.
	HeaderAuthorization = "Authorization"
	// HeaderAPIKey carries the Etsy application keystring.
	HeaderAPIKey = "x-api-key"
)

// ErrMissingToken is returned when no access token is configured.
var ErrMissingToken = errors.New("access token must be set")

// Bearer injects the OAuth bearer credential expected by the Etsy Open API.
type Bearer struct {
	Token  string
	APIKey string
}

// NewBearer constructs an authorizer. apiKey may be empty, in which case the
// keystring header is omitted.
func NewBearer(token, apiKey string) *Bearer {
	return &Bearer{
		Token:  token,
		APIKey: apiKey,
	}
}

// Authorize mutates the request by setting the Authorization header and, when
// configured, the application keystring header.
func (b *Bearer) Authorize(req *http.Request) error {
	if b.Token == "" {
		return ErrMissingToken
	}

	req.Header.Set(HeaderAuthorization, "Bearer "+b.Token)
	if b.APIKey != "" {
		req.Header.Set(HeaderAPIKey, b.APIKey)
	}

	return nil
}
