package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

type WriteRecordParams struct {
	TakenAt     time.Time
	Temperature float64
	Humidity    float64
}

// Store writes climate readings to Postgres. The table is expected to
// exist:
//
//	CREATE TABLE climate_readings (
//	    taken_at      timestamptz NOT NULL,
//	    temperature_c double precision NOT NULL,
//	    humidity_rh   double precision NOT NULL
//	);
type Store struct {
	db *sql.DB
}

// Open prepares a connection pool. The database is not contacted until
// the first write, so the station can start before the db is up.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	return &Store{db: db}, nil
}

func (s *Store) WriteRecord(ctx context.Context, p WriteRecordParams) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO climate_readings (taken_at, temperature_c, humidity_rh) VALUES ($1, $2, $3)`,
		p.TakenAt, p.Temperature, p.Humidity)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
