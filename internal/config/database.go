package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db, cfg.Credits.DailyCredits); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB, defaultCredits int) error {
	// Create users table
	_, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			role VARCHAR(10) NOT NULL DEFAULT 'user',
			credits INTEGER NOT NULL DEFAULT %d,
			created_at TIMESTAMP NOT NULL
		)
	`, defaultCredits))
	if err != nil {
		return err
	}

	// Create documents table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			filename VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			file_path TEXT NOT NULL,
			upload_date TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create credit_requests table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS credit_requests (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			requested_amount INTEGER NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'pending',
			request_date TIMESTAMP NOT NULL,
			response_date TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	// Create activity_logs table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS activity_logs (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			action_type VARCHAR(50) NOT NULL,
			details TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_activity_logs_user_id ON activity_logs(user_id, timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_credit_requests_status ON credit_requests(status)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
