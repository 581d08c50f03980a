package stats

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"syscall"
)

// Classify maps a per-attempt error onto a short stable kind label for the
// error breakdown. Unrecognized errors fall back to their Go type name.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "connection reset"
	case errors.Is(err, syscall.EPIPE):
		return "broken pipe"
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return "unreachable"
	case errors.Is(err, syscall.EPERM), errors.Is(err, syscall.EACCES):
		return "permission denied"
	case errors.Is(err, syscall.ENOBUFS), errors.Is(err, syscall.EMFILE):
		return "resource exhausted"
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "ping exit status"
	}

	kind := fmt.Sprintf("%T", err)
	if len(kind) > 30 {
		kind = kind[len(kind)-30:]
	}
	return kind
}
