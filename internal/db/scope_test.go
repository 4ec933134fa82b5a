package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/petalmail/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const setConfigPattern = `(?s)^SELECT\s+set_config\(\$1,\s*\$2,\s*false\)$`

func newMockPool(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool, mock
}

type failingPool struct{ err error }

func (p failingPool) Conn(context.Context) (*sql.Conn, error) { return nil, p.err }

func TestSessionSettings(t *testing.T) {
	settings := SessionSettings(config.DatabaseConfig{})
	require.Len(t, settings, 3)
	assert.Equal(t, SessionSetting{Name: "TimeZone", Value: "Etc/GMT+8"}, settings[0])

	settings = SessionSettings(config.DatabaseConfig{TimeZone: "UTC"})
	assert.Equal(t, "UTC", settings[0].Value)
}

func TestAcquire_ConfiguresSession(t *testing.T) {
	pool, mock := newMockPool(t)
	settings := SessionSettings(config.DatabaseConfig{})
	for _, s := range settings {
		mock.ExpectExec(setConfigPattern).
			WithArgs(s.Name, s.Value).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	conn, err := Acquire(context.Background(), pool, settings)
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Stats().InUse)

	require.NoError(t, conn.Close())
	assert.Equal(t, 0, pool.Stats().InUse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_SessionFailureReleasesConnection(t *testing.T) {
	pool, mock := newMockPool(t)
	mock.ExpectExec(setConfigPattern).
		WithArgs("TimeZone", "Etc/GMT+8").
		WillReturnError(errors.New("invalid value for parameter"))

	conn, err := Acquire(context.Background(), pool, SessionSettings(config.DatabaseConfig{}))
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, ErrSession)
	assert.Equal(t, 0, pool.Stats().InUse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_PoolFailure(t *testing.T) {
	cause := errors.New("too many clients")

	_, err := Acquire(context.Background(), failingPool{err: cause}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAcquire)
	assert.ErrorIs(t, err, cause)
}

func TestConnFromContext(t *testing.T) {
	_, err := ConnFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoConnection)

	pool, _ := newMockPool(t)
	q, err := ConnFromContext(WithConn(context.Background(), pool))
	require.NoError(t, err)
	assert.Same(t, pool, q)
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "petal",
		Password: "p@ss",
		DBName:   "petalmail",
	})
	assert.Equal(t, "postgres://petal:p%40ss@db:5432/petalmail?sslmode=disable", dsn)

	dsn = DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "d", UseSSL: true})
	assert.Contains(t, dsn, "sslmode=require")
}
