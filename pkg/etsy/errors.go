// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package etsy

import (
	"fmt"
	"net/http"
)

// StatusError reports a non-2xx response from the Etsy API.
type StatusError struct {
	Status int    // Status is the upstream HTTP status code.
	Body   []byte // Body holds at most maxErrorBody bytes of the upstream payload.
}

// Error implements the error interface for StatusError.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d (%s)", e.Status, http.StatusText(e.Status))
}
