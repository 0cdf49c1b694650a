package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

// FetchError is returned once a request has used up its attempts.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AuthError means the site refused the credentials, or answered with a
// bot-challenge page instead of content. Retrying with the same session
// is pointless.
type AuthError struct {
	URL    string
	Status int
	Bot    bool
}

func (e *AuthError) Error() string {
	if e.Bot {
		return fmt.Sprintf("bot challenge page at %s (status %d), refresh the session cookie", e.URL, e.Status)
	}
	return fmt.Sprintf("access denied at %s (status %d), check your credentials", e.URL, e.Status)
}

// StatusError is any other non-2xx answer.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Status, e.URL)
}

// MalformedError means the body was not the JSON shape the caller expected.
type MalformedError struct {
	URL string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

func Malformed(url string, err error) error {
	return &MalformedError{URL: url, Err: err}
}

func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// Retryable reports whether err is worth another attempt: network failures,
// 429 and 5xx are, everything else is not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var (
		ae *AuthError
		me *MalformedError
		se *StatusError
	)
	switch {
	case errors.As(err, &ae), errors.As(err, &me):
		return false
	case errors.As(err, &se):
		return se.Status == 429 || se.Status >= 500
	}
	return true
}

var botMarkers = [][]byte{
	[]byte("Just a moment"),
	[]byte("cf-chl"),
	[]byte("_cf_chl"),
	[]byte("challenges.cloudflare.com"),
	[]byte("cf-browser-verification"),
	[]byte("Attention Required!"),
}

// IsBotChallenge reports whether body looks like an anti-bot interstitial.
// JSON bodies never count.
func IsBotChallenge(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return false
	}
	for _, m := range botMarkers {
		if bytes.Contains(body, m) {
			return true
		}
	}
	return false
}
