// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package proxy exposes the local HTTP surface of the Etsy listings proxy. A
// single GET route fetches the configured shop's active listings from the
// Etsy Open API and relays them as JSON, so local clients never hold the
// upstream credential. Every upstream failure is logged in full and reported
// to the caller as the same generic 500 response.
package proxy
