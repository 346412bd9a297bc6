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

func TestCopyInTx_EmptyRows(t *testing.T) {
	n, err := CopyInTx(context.TODO(), nil, "demanda", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyInTx_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"public", "demanda"}, []string{"a"}).WillReturnResult(1)
	mock.ExpectCommit()

	n, err := CopyInTx(context.Background(), mock, "public.demanda", []string{"a"}, [][]any{{1}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInTx_Commits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"demanda"}, []string{"barrio"}).WillReturnResult(2)
	mock.ExpectCommit()

	n, err := CopyInTx(context.Background(), mock, "demanda", []string{"barrio"}, [][]any{{"Russafa"}, {"El Carme"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInTx_RollsBackOnCopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"demanda"}, []string{"barrio"}).WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = CopyInTx(context.Background(), mock, "demanda", []string{"barrio"}, [][]any{{"Russafa"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO demanda")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInTx_ShortWrite(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"demanda"}, []string{"barrio"}).WillReturnResult(1)
	mock.ExpectRollback()

	_, err = CopyInTx(context.Background(), mock, "demanda", []string{"barrio"}, [][]any{{"a"}, {"b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrote 1 of 2 rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInTx_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(fmt.Errorf("connection refused"))

	_, err = CopyInTx(context.Background(), mock, "demanda", []string{"barrio"}, [][]any{{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}
