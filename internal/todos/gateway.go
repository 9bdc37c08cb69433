package todos

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrTitleRequired = errors.New("title required")
	ErrNotFound      = errors.New("todo not found")
	ErrUnavailable   = errors.New("todo store unavailable")
)

// GatewayError is any store failure other than not-found. The cause is for
// logs only and never reaches a response body.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Gateway is a document store holding todos, keyed (and partitioned) by id.
// Implementations return ErrNotFound for a missing id and *GatewayError for
// everything else, and must be safe for concurrent use.
type Gateway interface {
	List(ctx context.Context) ([]Todo, error)
	Create(ctx context.Context, t Todo) error
	Read(ctx context.Context, id string) (Todo, error)
	Replace(ctx context.Context, t Todo) error
	Delete(ctx context.Context, id string) error
}

func gatewayErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return err
	}
	return &GatewayError{Op: op, Err: err}
}
