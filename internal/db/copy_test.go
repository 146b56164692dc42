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
	n, err := CopyFrom(context.TODO(), nil, "store_categories", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"store_categories"}, []string{"store_id", "category_id"}).WillReturnResult(3)

	rows := [][]any{{"p1", 1}, {"p1", 4}, {"p2", 6}}
	n, err := CopyFrom(context.Background(), mock, "store_categories", []string{"store_id", "category_id"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"store_categories"}, []string{"store_id", "category_id"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"p1", 1}}
	_, err = CopyFrom(context.Background(), mock, "store_categories", []string{"store_id", "category_id"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO store_categories")
	assert.NoError(t, mock.ExpectationsWereMet())
}
