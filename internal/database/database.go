package database

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	pair       TEXT    NOT NULL,
	buy_on     TEXT    NOT NULL,
	sell_on    TEXT    NOT NULL,
	buy_price  REAL    NOT NULL,
	sell_price REAL    NOT NULL,
	gross_edge REAL    NOT NULL,
	net_edge   REAL    NOT NULL,
	ts         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opportunities_pair_ts ON opportunities (pair, ts);
`

// Service persists detected opportunities to sqlite. It implements the
// watcher's Sink interface.
type Service struct {
	db  *sql.DB
	log *zap.Logger
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(path string, log *zap.Logger) (*Service, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("database opened at " + path)
	return &Service{db: db, log: log}, nil
}

func (s *Service) Record(ctx context.Context, opportunity domain.Opportunity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO opportunities (pair, buy_on, sell_on, buy_price, sell_price, gross_edge, net_edge, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		opportunity.Pair,
		opportunity.BuyOn.String(),
		opportunity.SellOn.String(),
		opportunity.BuyPrice,
		opportunity.SellPrice,
		opportunity.GrossEdge,
		opportunity.NetEdge,
		int64(opportunity.TS),
	)
	return err
}

// Recent returns the latest opportunities for a pair, newest first.
func (s *Service) Recent(ctx context.Context, pair string, limit int) ([]domain.Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT pair, buy_on, sell_on, buy_price, sell_price, gross_edge, net_edge, ts
		 FROM opportunities WHERE pair = ? ORDER BY ts DESC LIMIT ?`, pair, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opportunities []domain.Opportunity
	for rows.Next() {
		var opportunity domain.Opportunity
		var buyOn, sellOn string
		var ts int64
		if err := rows.Scan(&opportunity.Pair, &buyOn, &sellOn,
			&opportunity.BuyPrice, &opportunity.SellPrice,
			&opportunity.GrossEdge, &opportunity.NetEdge, &ts); err != nil {
			return nil, err
		}
		if opportunity.BuyOn, err = domain.ParseVenue(buyOn); err != nil {
			return nil, err
		}
		if opportunity.SellOn, err = domain.ParseVenue(sellOn); err != nil {
			return nil, err
		}
		opportunity.TS = uint64(ts)
		opportunities = append(opportunities, opportunity)
	}
	return opportunities, rows.Err()
}

func (s *Service) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) Close() error {
	return s.db.Close()
}
