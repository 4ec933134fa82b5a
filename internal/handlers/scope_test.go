package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/petalmail/apiserver/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSession = []db.SessionSetting{{Name: "TimeZone", Value: "Etc/GMT+8"}}

const setConfigPattern = `SELECT\s+set_config`

func newMockPool(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool, mock
}

type failingPool struct{}

func (failingPool) Conn(context.Context) (*sql.Conn, error) {
	return nil, errors.New("sorry, too many clients already")
}

func TestConnectionScope_ExposesConnectionAndReleases(t *testing.T) {
	pool, mock := newMockPool(t)
	mock.ExpectExec(setConfigPattern).
		WithArgs("TimeZone", "Etc/GMT+8").
		WillReturnResult(sqlmock.NewResult(0, 1))

	var inUse int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := db.ConnFromContext(r.Context())
		require.NoError(t, err)
		inUse = pool.Stats().InUse
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	ConnectionScope(pool, testSession, zap.NewNop())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emails", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, inUse)
	assert.Equal(t, 0, pool.Stats().InUse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionScope_AcquireFailureStopsRequest(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	ConnectionScope(failingPool{}, testSession, zap.NewNop())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emails", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"data":null,"error":true,"msg":"Error connecting to database"}`, rec.Body.String())
}

func TestConnectionScope_SessionFailureStopsRequest(t *testing.T) {
	pool, mock := newMockPool(t)
	mock.ExpectExec(setConfigPattern).
		WithArgs("TimeZone", "Etc/GMT+8").
		WillReturnError(errors.New("invalid value for parameter \"TimeZone\""))

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	ConnectionScope(pool, testSession, zap.NewNop())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emails", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 0, pool.Stats().InUse)
}

func TestConnectionScope_ReleasesOnPanic(t *testing.T) {
	pool, mock := newMockPool(t)
	mock.ExpectExec(setConfigPattern).
		WithArgs("TimeZone", "Etc/GMT+8").
		WillReturnResult(sqlmock.NewResult(0, 1))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler blew up")
	})
	scoped := ConnectionScope(pool, testSession, zap.NewNop())(next)

	assert.Panics(t, func() {
		scoped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/emails", nil))
	})
	assert.Equal(t, 0, pool.Stats().InUse)
}
