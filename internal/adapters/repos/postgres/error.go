package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"gitlab.com/ucmsv2/authcode-service/internal/adapters/repos"
)

var ErrNilAuthCode = errors.New("auth code cannot be nil")

// wrapError annotates err with op and, for failures that mean the database is
// unreachable or overloaded, the status the caller should surface.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", op, err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, repos.ErrAlreadyExists, err)
		case pgErr.Code == pgerrcode.QueryCanceled:
			return repos.NewStatusError(http.StatusGatewayTimeout, wrapped)
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code),
			pgerrcode.IsOperatorIntervention(pgErr.Code):
			return repos.NewStatusError(http.StatusServiceUnavailable, wrapped)
		}
		return wrapped
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return repos.NewStatusError(http.StatusServiceUnavailable, wrapped)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return repos.NewStatusError(http.StatusGatewayTimeout, wrapped)
	}
	return wrapped
}
