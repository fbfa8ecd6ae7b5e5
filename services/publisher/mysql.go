package publisher

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"sjsage522/reviewworker/pkg/errors"

	_ "github.com/go-sql-driver/mysql"
)

const createReviewsTable = `CREATE TABLE IF NOT EXISTS reviews (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	city VARCHAR(64) NOT NULL,
	activity_name VARCHAR(255) NULL,
	username VARCHAR(255) NULL,
	payload JSON NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	KEY idx_reviews_city (city)
)`

const insertReview = `INSERT INTO reviews (city, activity_name, username, payload) VALUES (?, ?, ?, ?)`

// MySQLPublisher stores one row per record with the record JSON as payload
type MySQLPublisher struct {
	db  *sql.DB
	ctx context.Context
}

// NewMySQLPublisher connects to dsn and creates the reviews table when missing
func NewMySQLPublisher(ctx context.Context, dsn string) (*MySQLPublisher, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.NewPublisher("mysql", "sql.Open failed", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewPublisher("mysql", "db.Ping failed", err)
	}
	if _, err := db.ExecContext(ctx, createReviewsTable); err != nil {
		db.Close()
		return nil, errors.NewPublisher("mysql", "create reviews table failed", err)
	}

	return &MySQLPublisher{db: db, ctx: ctx}, nil
}

// recordColumns are the record fields promoted to columns
type recordColumns struct {
	City         string  `json:"city"`
	ActivityName *string `json:"activity_name"`
	Username     *string `json:"username"`
}

// Publish inserts message; key is used as the city when the record has none
func (p *MySQLPublisher) Publish(key string, message []byte) error {
	var cols recordColumns
	if err := json.Unmarshal(message, &cols); err != nil {
		return errors.NewPublisher("mysql", "record is not JSON", err)
	}
	if cols.City == "" {
		cols.City = key
	}

	if _, err := p.db.ExecContext(p.ctx, insertReview, cols.City, cols.ActivityName, cols.Username, message); err != nil {
		return errors.NewPublisher("mysql", "insert review failed", err)
	}
	return nil
}

// TrimStreams is a no-op; the table is unbounded
func (p *MySQLPublisher) TrimStreams() error {
	return nil
}

// Close closes the database handle
func (p *MySQLPublisher) Close() error {
	return p.db.Close()
}
