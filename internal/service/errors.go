package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"restaurant-order-service/internal/common"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

// classify turns store and network failures into application errors.
// Errors that already carry an application code pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *common.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return common.ErrTransient.Wrap(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return common.ErrTransient.Wrap(err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		if strings.Contains(myErr.Message, "idempotent_key") {
			return common.ErrDuplicateRequest.Wrap(err)
		}
		return common.ErrConflict.Wrap(err)
	}
	return common.ErrInternal.Wrap(err)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
