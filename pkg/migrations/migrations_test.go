package migrations

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaDeclaresEnrollmentConstraints(t *testing.T) {
	ddl := Schema()
	assert.Contains(t, ddl, "courses_actual_s_non_negative")
	assert.Contains(t, ddl, "courses_actual_s_within_max")
	assert.Contains(t, ddl, "PRIMARY KEY (student, course)")
}

func TestApplyCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS students").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, Apply(context.Background(), sqlx.NewDb(db, "postgres")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = Apply(context.Background(), sqlx.NewDb(db, "postgres"))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
