package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "customer_purchases", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"customer_purchases"}, []string{"customer_id", "product"}).WillReturnResult(3)

	rows := [][]any{{"C1", "Drills"}, {"C1", "Drill Bits"}, {"C2", "Generators"}}
	n, err := CopyFrom(context.Background(), mock, "customer_purchases", []string{"customer_id", "product"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"customer_purchases"}, []string{"customer_id"}).WillReturnError(fmt.Errorf("permission denied"))

	_, err = CopyFrom(context.Background(), mock, "customer_purchases", []string{"customer_id"}, [][]any{{"C1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO customer_purchases")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_RowWidthMismatch(t *testing.T) {
	_, err := CopyFrom(context.Background(), nil, "customer_purchases", []string{"a", "b"}, [][]any{{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0 has 1 values, want 2")
}

func TestCopyFrom_NoColumns(t *testing.T) {
	_, err := CopyFrom(context.Background(), nil, "customer_purchases", nil, [][]any{{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}
