package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinInfluence/internal/domain/models"
	pkgch "FinInfluence/pkg/clickhouse"
	applogger "FinInfluence/pkg/logger"
)

func newHistory(t *testing.T) (*CHHistory, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h, err := NewCHHistory(pkgch.NewClientFromDB(db), "markets.daily_closes", 180, applogger.Nop())
	require.NoError(t, err)
	return h, mock
}

var closesQuery = regexp.QuoteMeta("SELECT close") + `\s+` + regexp.QuoteMeta("FROM markets.daily_closes")

func TestCHHistoryReturnsAscending(t *testing.T) {
	h, mock := newHistory(t)
	mock.ExpectQuery(closesQuery).
		WithArgs("AAPL", 180).
		WillReturnRows(sqlmock.NewRows([]string{"close"}).AddRow(103.0).AddRow(102.0).AddRow(101.0))

	closes, err := h.FetchCloses(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102, 103}, closes)
	assert.Equal(t, models.SourceStore, h.Source())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHHistoryEmptyIsNoHistory(t *testing.T) {
	h, mock := newHistory(t)
	mock.ExpectQuery(closesQuery).
		WithArgs("ZZZ", 180).
		WillReturnRows(sqlmock.NewRows([]string{"close"}))

	_, err := h.FetchCloses(context.Background(), "ZZZ")
	assert.ErrorIs(t, err, models.ErrNoHistory)
}

func TestCHHistoryQueryError(t *testing.T) {
	h, mock := newHistory(t)
	mock.ExpectQuery(closesQuery).WillReturnError(errors.New("connection reset"))

	_, err := h.FetchCloses(context.Background(), "AAPL")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNoHistory)
}

func TestCHHistoryEnsureSchema(t *testing.T) {
	h, mock := newHistory(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS markets.daily_closes")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, h.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHHistoryRejectsBadTable(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = NewCHHistory(pkgch.NewClientFromDB(db), "x; DROP TABLE y", 10, applogger.Nop())
	assert.Error(t, err)
}
