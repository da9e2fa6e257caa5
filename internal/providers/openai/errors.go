package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// APIError is a semantic failure reported by the remote service: bad
// request, policy violation, auth failure. These recur on retry, so the
// queue never retries them.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		if e.Code != "" {
			return fmt.Sprintf("openai: %s (%s)", e.Message, e.Code)
		}
		return fmt.Sprintf("openai: %s", e.Message)
	}
	return fmt.Sprintf("openai: http %d", e.Status)
}

// IsTransient classifies a failure as likely to succeed on retry. Only
// network-level faults qualify: connection resets, dropped connections
// and the like. Semantic API errors and context cancellation never do.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection error") ||
		strings.Contains(msg, "network")
}
