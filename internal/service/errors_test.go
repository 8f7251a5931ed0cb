package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"restaurant-order-service/internal/common"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, common.ErrTransient},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), common.ErrTransient},
		{"bad conn", mysql.ErrInvalidConn, common.ErrTransient},
		{"duplicate key", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'k' for key 'orders.idempotent_key'"}, common.ErrDuplicateRequest},
		{"duplicate code", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ORD-1' for key 'orders.order_code'"}, common.ErrConflict},
		{"app error", common.ErrOrderLocked, common.ErrOrderLocked},
		{"unknown", errors.New("syntax error"), common.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(classify(tt.err), tt.want))
		})
	}
	assert.NoError(t, classify(nil))
}
