package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/models"
	_ "github.com/lib/pq"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// ConnectPostgres opens the connection pool, verifies it, and bootstraps the
// schema.
func ConnectPostgres(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{db: db}
	if err := store.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("[DB] connected to PostgreSQL")
	return store, nil
}

func (p *PostgresStore) createTables() error {
	query := `
    CREATE TABLE IF NOT EXISTS users (
        id SERIAL PRIMARY KEY,
        username VARCHAR(255) NOT NULL UNIQUE,
        email VARCHAR(255) NOT NULL UNIQUE,
        password VARCHAR(255) NOT NULL,
        reset_token VARCHAR(255),
        reset_token_expires TIMESTAMPTZ,
        created_at TIMESTAMPTZ DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS scans (
        id UUID PRIMARY KEY,
        user_id INT NOT NULL,
        scan_type VARCHAR(20) NOT NULL,
        resource TEXT NOT NULL,
        status VARCHAR(20) NOT NULL,
        result JSONB,
        created_at TIMESTAMPTZ NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_scans_user_created ON scans(user_id, created_at DESC);
    `
	_, err := p.db.Exec(query)
	return err
}

func (p *PostgresStore) CreateScan(scan *models.Scan) error {
	query := `
    INSERT INTO scans (id, user_id, scan_type, resource, status, result, created_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	var result interface{}
	if scan.Result != nil {
		result = []byte(scan.Result)
	}
	_, err := p.db.Exec(query,
		scan.ID, scan.UserID, scan.ScanType, scan.Resource, scan.Status, result, scan.CreatedAt)
	return err
}

func (p *PostgresStore) GetScan(id string) (*models.Scan, error) {
	query := `
    SELECT id, user_id, scan_type, resource, status, result, created_at
    FROM scans WHERE id = $1
    `
	return p.scanRow(p.db.QueryRow(query, id))
}

func (p *PostgresStore) UpdateScan(id string, update ScanUpdate) (*models.Scan, error) {
	if update.Status != nil {
		query := `UPDATE scans SET status = $1, result = $2 WHERE id = $3`
		if _, err := p.db.Exec(query, *update.Status, []byte(update.Result), id); err != nil {
			return nil, err
		}
	} else if update.Result != nil {
		query := `UPDATE scans SET result = $1 WHERE id = $2`
		if _, err := p.db.Exec(query, []byte(update.Result), id); err != nil {
			return nil, err
		}
	}
	return p.GetScan(id)
}

func (p *PostgresStore) ScansByUser(userID, limit int) ([]models.Scan, error) {
	query := `
    SELECT id, user_id, scan_type, resource, status, result, created_at
    FROM scans WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
    `
	rows, err := p.db.Query(query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []models.Scan
	for rows.Next() {
		scan, err := p.scanRow(rows)
		if err != nil {
			log.Printf("[DB] error scanning row: %v", err)
			continue
		}
		scans = append(scans, *scan)
	}
	return scans, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (p *PostgresStore) scanRow(row rowScanner) (*models.Scan, error) {
	var scan models.Scan
	var result sql.NullString
	err := row.Scan(
		&scan.ID,
		&scan.UserID,
		&scan.ScanType,
		&scan.Resource,
		&scan.Status,
		&result,
		&scan.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if result.Valid {
		scan.Result = []byte(result.String)
	}
	return &scan, nil
}

func (p *PostgresStore) CreateUser(user *models.User) error {
	query := `
    INSERT INTO users (username, email, password, created_at)
    VALUES ($1, $2, $3, NOW())
    RETURNING id, created_at
    `
	return p.db.QueryRow(query, user.Username, user.Email, user.Password).
		Scan(&user.ID, &user.CreatedAt)
}

func (p *PostgresStore) UserByUsername(username string) (*models.User, error) {
	return p.userBy("username = $1", username)
}

func (p *PostgresStore) UserByEmail(email string) (*models.User, error) {
	return p.userBy("email = $1", email)
}

func (p *PostgresStore) UserByResetToken(token string) (*models.User, error) {
	return p.userBy("reset_token = $1", token)
}

func (p *PostgresStore) userBy(where string, arg interface{}) (*models.User, error) {
	query := `
    SELECT id, username, email, password, COALESCE(reset_token, ''), reset_token_expires, created_at
    FROM users WHERE ` + where
	var user models.User
	err := p.db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.ResetToken,
		&user.ResetTokenExpires,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (p *PostgresStore) SetResetToken(email, token string, expires time.Time) error {
	query := `UPDATE users SET reset_token = $1, reset_token_expires = $2 WHERE email = $3`
	res, err := p.db.Exec(query, token, expires, email)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) UpdatePassword(userID int, hashedPassword string) error {
	query := `
    UPDATE users SET password = $1, reset_token = NULL, reset_token_expires = NULL
    WHERE id = $2
    `
	res, err := p.db.Exec(query, hashedPassword, userID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
