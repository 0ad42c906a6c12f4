package platform

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/onnwee/chatrec/discordapi"
	"github.com/onnwee/chatrec/slackapi"
)

// AccessError means the channel cannot be recorded with the given
// credentials: bad token, missing permission or no such channel.
// Retrying will not help.
type AccessError struct {
	Platform string
	Channel  string
	Err      error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: channel %q not accessible: %v", e.Platform, e.Channel, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// FetchError means the capture failed for a non-access reason after any
// retries were spent.
type FetchError struct {
	Platform string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s: fetch failed after %d attempts: %v", e.Platform, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: fetch failed: %v", e.Platform, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrorClass represents whether a fetch error should be retried or not.
type ErrorClass int

const (
	// ClassUnknown indicates the error type cannot be determined.
	ClassUnknown ErrorClass = iota
	// ClassAccess indicates a permission or existence problem that no
	// amount of retrying will fix.
	ClassAccess
	// ClassTransient indicates a temporary failure worth retrying.
	ClassTransient
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ClassAccess:
		return "access"
	case ClassTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Slack reports failures as ok:false with a reason string. These reasons
// mean the channel or token is no good; everything else is worth a retry.
var slackAccessReasons = map[string]bool{
	"channel_not_found": true,
	"invalid_auth":      true,
	"not_authed":        true,
	"account_inactive":  true,
	"token_revoked":     true,
	"missing_scope":     true,
	"not_in_channel":    true,
	"access_denied":     true,
}

// Classify sorts fetch errors into access vs transient.
//
// Access errors (non-retryable):
// - HTTP 401/403/404 from a platform API
// - Slack ok:false reasons about auth, scopes or missing channels
// - Error text about authorization or missing content
//
// Transient errors (retryable):
// - Server errors (500, 502, 503, 504)
// - Network failures (timeout, connection reset, DNS)
// - Rate limiting (429, too many requests)
//
// Errors that match no known pattern are treated as transient so a flaky
// network does not abort a capture too early.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	var dErr *discordapi.APIError
	if errors.As(err, &dErr) {
		return classifyStatus(dErr.StatusCode)
	}
	var sErr *slackapi.APIError
	if errors.As(err, &sErr) {
		if sErr.Reason != "" {
			if slackAccessReasons[sErr.Reason] {
				return ClassAccess
			}
			return ClassTransient
		}
		return classifyStatus(sErr.StatusCode)
	}

	lower := strings.ToLower(err.Error())

	// Check server errors before the generic patterns so that
	// "503 service unavailable" is not mistaken for an access problem.
	if strings.Contains(lower, "500") ||
		strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") ||
		strings.Contains(lower, "504") ||
		strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "service unavailable") {
		return ClassTransient
	}

	if strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "forbidden") ||
		strings.Contains(lower, "invalid token") ||
		strings.Contains(lower, "authentication") ||
		strings.Contains(lower, "401") ||
		strings.Contains(lower, "403") {
		return ClassAccess
	}

	if strings.Contains(lower, "not found") ||
		strings.Contains(lower, "404") {
		return ClassAccess
	}

	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"no such host",
		"rate limit",
		"too many requests",
		"429",
		"temporarily",
		"eof",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(lower, pattern) {
			return ClassTransient
		}
	}

	return ClassTransient
}

func classifyStatus(status int) ErrorClass {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return ClassAccess
	default:
		return ClassTransient
	}
}
