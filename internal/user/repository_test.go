package user

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "postgres")), mock
}

func userRows(id, name, email string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "balance", "created_at", "updated_at",
	}).AddRow(id, name, email, "$2a$10$hash", "42.00", now, now)
}

func TestCreateUser(t *testing.T) {
	repo, mock := setupUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id, name, email, password_hash, balance, created_at, updated_at`)).
		WithArgs("Ann", "ann@example.com", "$2a$10$hash").
		WillReturnRows(userRows("u-1", "Ann", "ann@example.com"))

	u, err := repo.Create(context.Background(), "Ann", "ann@example.com", "$2a$10$hash")

	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmail(t *testing.T) {
	repo, mock := setupUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, password_hash, balance, created_at, updated_at FROM users WHERE email = $1`)).
		WithArgs("ann@example.com").
		WillReturnRows(userRows("u-1", "Ann", "ann@example.com"))

	u, err := repo.FindByEmail(context.Background(), "ann@example.com")

	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock := setupUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, password_hash, balance, created_at, updated_at FROM users WHERE email = $1`)).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEmailExists(t *testing.T) {
	repo, mock := setupUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`)).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.EmailExists(context.Background(), "ann@example.com")

	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBalance(t *testing.T) {
	repo, mock := setupUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT balance FROM users WHERE id = $1`)).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("125.50"))

	balance, err := repo.Balance(context.Background(), "u-1")

	require.NoError(t, err)
	assert.Equal(t, "125.5", balance.String())
}

func TestBalance_UnknownUser(t *testing.T) {
	repo, mock := setupUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT balance FROM users WHERE id = $1`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}))

	_, err := repo.Balance(context.Background(), "nope")

	assert.ErrorIs(t, err, ErrUserNotFound)
}
