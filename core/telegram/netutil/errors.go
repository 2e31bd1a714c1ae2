// Package netutil classifies Telegram API and transport errors.
package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"regexp"
	"syscall"
	"time"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// Transient reports whether repeating the same call may succeed:
// network timeouts, refused or reset connections, flood waits and 5xx replies.
// Cancellation and deadlines of the caller's context are never transient.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// RetryAfter returns the wait Telegram asked for in a flood error, or zero.
func RetryAfter(err error) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return 0
}

// Backoff is the pause before attempt+1: the flood wait when there is one,
// otherwise base grown linearly with the attempt number.
func Backoff(attempt int, base time.Duration, err error) time.Duration {
	if d := RetryAfter(err); d > 0 {
		return d
	}
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(attempt)
}

// Kind names the error class for the error_kind log attribute.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var (
		flood  tele.FloodError
		apiErr *tele.Error
		dnsErr *net.DNSError
		alert  tls.AlertError
		verify *tls.CertificateVerificationError
		netErr net.Error
		opErr  *net.OpError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &flood):
		return "flood"
	case errors.As(err, &apiErr):
		if apiErr.Code >= 500 {
			return "http_5xx"
		}
		return "http_4xx"
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	case errors.As(err, &alert), errors.As(err, &verify):
		return "tls"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	}
	return "unknown"
}

// Redact masks bot tokens that net/http embeds in request URLs.
func Redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
