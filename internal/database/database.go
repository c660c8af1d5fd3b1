package database

import (
	"database/sql"
	"fmt"

	"hotel_pms_backend/internal/config"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Connect opens a connection pool to Postgres and verifies it with a ping.
// The pool is handed to callers explicitly; there is no package-level client.
func Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}
