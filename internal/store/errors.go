package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultTimeout bounds every store round trip when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrUnavailable is returned when the backing store timed out or could not be reached.
// Callers may retry; the store itself never does.
var ErrUnavailable = errors.New("store unavailable")

// Bound derives a context limited by d (DefaultTimeout when d <= 0).
func Bound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// Detached derives a bounded context that survives cancellation of ctx. Writes that have
// started run on it so a disconnecting caller does not leave them half applied.
func Detached(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return Bound(context.WithoutCancel(ctx), d)
}

// Classify maps timeouts and connectivity failures to ErrUnavailable and leaves other errors
// untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	var (
		connErr *pgconn.ConnectError
		netErr  net.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.As(err, &connErr),
		errors.As(err, &netErr),
		pgconn.Timeout(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
