// Package api provides error types for ArcGIS sharing API responses.
package api

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is the error envelope the sharing API returns inside an HTTP 200
// body: {"error": {"code": 498, "message": "...", "details": [...]}}.
type APIError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("portal error %d: %s (%s)", e.Code, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("portal error %d: %s", e.Code, e.Message)
}

// ErrInvalidToken indicates the portal rejected our token (code 498/499).
// The run cannot continue; the user has to sign in again.
var ErrInvalidToken = errors.New("portal token invalid or expired")

// ErrNotFound indicates the requested item, folder, or group does not exist.
var ErrNotFound = errors.New("not found on portal")

// IsPermissionDenied checks whether an error is a portal permission failure.
// Group-membership and usage reads hit these routinely on items shared by
// other accounts; callers substitute a sentinel value rather than aborting.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 403 {
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "permission") || strings.Contains(errStr, "not authorized")
}

// wrapEnvelope converts an APIError to a typed sentinel where one exists,
// so callers can use errors.Is instead of matching codes.
func wrapEnvelope(apiErr *APIError) error {
	switch apiErr.Code {
	case 498, 499:
		return fmt.Errorf("%w: %s", ErrInvalidToken, apiErr.Message)
	case 400:
		if strings.Contains(strings.ToLower(apiErr.Message), "unable to find") {
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
		}
	case 404:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	}
	return apiErr
}
