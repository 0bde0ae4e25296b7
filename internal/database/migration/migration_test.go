package migration

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sentinel = "SELECT to_regclass\\('public.orders'\\) IS NOT NULL"

func TestEnsureMigrated_Skip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	mock.ExpectQuery(sentinel).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err = EnsureMigrated(context.Background(), db, zerolog.New(&buf), "db.local")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"event":"db_migration_skip"`)
	assert.Contains(t, buf.String(), `"db_host":"db.local"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_RunsEveryStep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(sentinel).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	for _, s := range steps {
		mock.ExpectExec(regexp.QuoteMeta(s.SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	var buf bytes.Buffer
	err = EnsureMigrated(context.Background(), db, zerolog.New(&buf), "db.local")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"event":"db_migration_success"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_StepFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(sentinel).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))

	var buf bytes.Buffer
	err = EnsureMigrated(context.Background(), db, zerolog.New(&buf), "db.local")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create_table_users")
	assert.Contains(t, buf.String(), `"migration_step":"create_table_users"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_SentinelError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(sentinel).WillReturnError(errors.New("conn refused"))

	err = EnsureMigrated(context.Background(), db, zerolog.Nop(), "db.local")

	assert.ErrorContains(t, err, "failed to check sentinel table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSteps_SchemaShape(t *testing.T) {
	all := ""
	for _, s := range steps {
		all += s.SQL
	}
	assert.Contains(t, all, "NUMERIC(9,6)")
	assert.Contains(t, all, "ON DELETE CASCADE")
	assert.Equal(t, "create_unique_index_orders_donation", steps[len(steps)-1].Name)
}
