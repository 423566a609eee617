package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "password_hash", "created_at"}).
		AddRow("stu-1", "s123456@studenti.polito.it", "Mario Rossi", "$2a$10$hash", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE lower(email) = lower($1)")).
		WithArgs("S123456@studenti.polito.it").
		WillReturnRows(rows)

	student, err := repo.FindByEmail(context.Background(), "S123456@studenti.polito.it")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
