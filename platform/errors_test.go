package platform

import (
	"errors"
	"fmt"
	"testing"

	"github.com/onnwee/chatrec/discordapi"
	"github.com/onnwee/chatrec/slackapi"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  string
	}{
		{ClassAccess, "access"},
		{ClassTransient, "transient"},
		{ClassUnknown, "unknown"},
		{ErrorClass(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.class.String()
			if got != tt.want {
				t.Errorf("ErrorClass.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_Access(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		// Typed API errors
		{"discord 401", &discordapi.APIError{StatusCode: 401}},
		{"discord 403", &discordapi.APIError{StatusCode: 403, Code: 50001, Message: "Missing Access"}},
		{"discord 404", &discordapi.APIError{StatusCode: 404, Code: 10003, Message: "Unknown Channel"}},
		{"wrapped discord", fmt.Errorf("resolve channel: %w", &discordapi.APIError{StatusCode: 403})},
		{"slack channel_not_found", &slackapi.APIError{StatusCode: 200, Reason: "channel_not_found"}},
		{"slack invalid_auth", &slackapi.APIError{StatusCode: 200, Reason: "invalid_auth"}},
		{"slack missing_scope", &slackapi.APIError{StatusCode: 200, Reason: "missing_scope"}},
		{"slack not_in_channel", &slackapi.APIError{StatusCode: 200, Reason: "not_in_channel"}},
		{"slack 403 status", &slackapi.APIError{StatusCode: 403}},

		// Text fallbacks
		{"401 unauthorized", errors.New("HTTP Error 401: Unauthorized")},
		{"403 forbidden", errors.New("HTTP Error 403: Forbidden")},
		{"unauthorized", errors.New("unauthorized access")},
		{"invalid token", errors.New("invalid token provided")},
		{"authentication", errors.New("authentication failed")},
		{"404 not found", errors.New("HTTP Error 404: Not Found")},
		{"not found", errors.New("channel not found")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got != ClassAccess {
				t.Errorf("Classify(%q) = %v, want %v", tt.err, got, ClassAccess)
			}
		})
	}
}

func TestClassify_Transient(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		// Typed API errors
		{"discord 429", &discordapi.APIError{StatusCode: 429}},
		{"discord 500", &discordapi.APIError{StatusCode: 500}},
		{"discord 502", &discordapi.APIError{StatusCode: 502}},
		{"slack ratelimited", &slackapi.APIError{StatusCode: 200, Reason: "ratelimited"}},
		{"slack internal_error", &slackapi.APIError{StatusCode: 200, Reason: "internal_error"}},
		{"slack 503 status", &slackapi.APIError{StatusCode: 503}},

		// Server errors win over generic access words
		{"500 internal error", errors.New("HTTP Error 500: Internal Server Error")},
		{"502 bad gateway", errors.New("HTTP Error 502: Bad Gateway")},
		{"503 over access text", errors.New("503 service unavailable: access denied")},

		// Network and rate limiting
		{"timeout", errors.New("operation timed out after 30s")},
		{"connection refused", errors.New("dial tcp: connection refused")},
		{"connection reset", errors.New("connection reset by peer")},
		{"no such host", errors.New("lookup discord.com: no such host")},
		{"rate limit", errors.New("request rate limit exceeded")},
		{"too many requests", errors.New("Too Many Requests, slow down")},
		{"eof", errors.New("unexpected EOF while reading response")},

		// Unknown text defaults to transient
		{"unmatched", errors.New("something odd happened")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got != ClassTransient {
				t.Errorf("Classify(%q) = %v, want %v", tt.err, got, ClassTransient)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != ClassUnknown {
		t.Errorf("Classify(nil) = %v, want %v", got, ClassUnknown)
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")

	var accessErr error = &AccessError{Platform: "discord", Channel: "123", Err: inner}
	if !errors.Is(accessErr, inner) {
		t.Error("AccessError did not unwrap to the inner error")
	}

	var fetchErr error = &FetchError{Platform: "slack", Attempts: 3, Err: inner}
	if !errors.Is(fetchErr, inner) {
		t.Error("FetchError did not unwrap to the inner error")
	}
}

func TestFetchErrorMessage(t *testing.T) {
	multi := &FetchError{Platform: "discord", Attempts: 3, Err: errors.New("boom")}
	if got := multi.Error(); got != "discord: fetch failed after 3 attempts: boom" {
		t.Errorf("Error() = %q", got)
	}

	single := &FetchError{Platform: "irc", Attempts: 1, Err: errors.New("boom")}
	if got := single.Error(); got != "irc: fetch failed: boom" {
		t.Errorf("Error() = %q", got)
	}
}
