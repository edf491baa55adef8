package observability

import (
	"context"
	"errors"
)

type kinded interface {
	ErrorKindLabel() string
}

// ErrorKind buckets an agent failure into a low-cardinality label.
func ErrorKind(err error) string {
	var k kinded
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &k):
		return k.ErrorKindLabel()
	default:
		return "other"
	}
}
