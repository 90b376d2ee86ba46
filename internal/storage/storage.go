package storage

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/models"
)

// ErrNotFound is returned when a scan or user lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// ScanUpdate lists the mutable fields of a scan row. Nil fields are left
// untouched; a scan is only ever updated to attach submission metadata and
// its final resolution.
type ScanUpdate struct {
	Status *models.ScanStatus
	Result json.RawMessage
}

// Store is the durable CRUD contract the scan workflow and the account
// handlers run against.
type Store interface {
	CreateScan(scan *models.Scan) error
	GetScan(id string) (*models.Scan, error)
	UpdateScan(id string, update ScanUpdate) (*models.Scan, error)
	ScansByUser(userID, limit int) ([]models.Scan, error)

	CreateUser(user *models.User) error
	UserByUsername(username string) (*models.User, error)
	UserByEmail(email string) (*models.User, error)
	UserByResetToken(token string) (*models.User, error)
	SetResetToken(email, token string, expires time.Time) error
	UpdatePassword(userID int, hashedPassword string) error
}
