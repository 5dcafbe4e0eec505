package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"FinInfluence/internal/domain/models"
	domrepo "FinInfluence/internal/domain/repository"
	pkgch "FinInfluence/pkg/clickhouse"
	applogger "FinInfluence/pkg/logger"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CHHistory serves daily closes stored in ClickHouse. It is the first
// provider consulted when enabled, ahead of the market data service.
type CHHistory struct {
	db    *sql.DB
	table string
	limit int
	l     *applogger.Logger
}

var _ domrepo.HistoryProvider = (*CHHistory)(nil)

// NewCHHistory reads at most limit most recent closes per symbol from table.
func NewCHHistory(ch *pkgch.Client, table string, limit int, l *applogger.Logger) (*CHHistory, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", table)
	}
	return &CHHistory{db: ch.DB(), table: table, limit: limit, l: l}, nil
}

func (s *CHHistory) Source() models.DataSource { return models.SourceStore }

// EnsureSchema creates the close table if it does not exist.
func (s *CHHistory) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol LowCardinality(String),
            day    Date,
            close  Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, day)
    `, s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure %s: %w", s.table, err)
	}
	return nil
}

// FetchCloses returns up to limit closes for symbol, oldest first.
func (s *CHHistory) FetchCloses(ctx context.Context, symbol string) ([]float64, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT close
        FROM %s
        WHERE symbol = ?
        ORDER BY day DESC
        LIMIT ?
    `, s.table)

	rows, err := s.db.QueryContext(ctx, q, symbol, s.limit)
	if err != nil {
		s.l.Error("clickhouse closes query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query closes: %w", err)
	}
	defer rows.Close()

	out := make([]float64, 0, s.limit)
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan close: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("clickhouse %s: %w", symbol, models.ErrNoHistory)
	}

	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.l.Debug("clickhouse closes ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}
