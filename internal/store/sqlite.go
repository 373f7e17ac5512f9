// Package store provides durable storage backends for citizens and
// complaints.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Luks-code/luna-sub000/internal/models"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore implements Store over a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN (a file
// path). The parent directory is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// FindOrCreateCitizen implements Store.
func (s *SQLiteStore) FindOrCreateCitizen(citizen models.Citizen) (models.Citizen, error) {
	existing, err := findCitizen(s.db, citizen, "?")
	if err != nil {
		slog.Error("SQLiteStore.FindOrCreateCitizen lookup failed", "error", err, "phone", citizen.Phone)
		return models.Citizen{}, err
	}
	if existing != nil {
		merged, err := updateCitizen(s.db, *existing, citizen, "?")
		if err != nil {
			slog.Error("SQLiteStore.FindOrCreateCitizen update failed", "error", err, "citizenID", existing.ID)
			return models.Citizen{}, err
		}
		slog.Debug("SQLiteStore.FindOrCreateCitizen reconciled existing citizen", "citizenID", merged.ID)
		return merged, nil
	}

	res, err := s.db.Exec(`INSERT INTO citizens (name, document_id, phone, address) VALUES (?, ?, ?, ?)`,
		citizen.Name, nilIfEmpty(citizen.DocumentID), nilIfEmpty(citizen.Phone), citizen.Address)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Citizen{}, ErrDuplicateCitizen
		}
		slog.Error("SQLiteStore.FindOrCreateCitizen insert failed", "error", err, "phone", citizen.Phone)
		return models.Citizen{}, fmt.Errorf("failed to insert citizen: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Citizen{}, fmt.Errorf("failed to read citizen id: %w", err)
	}
	citizen.ID = id
	slog.Debug("SQLiteStore.FindOrCreateCitizen created citizen", "citizenID", id)
	return citizen, nil
}

// CreateComplaint implements Store. Status defaults to PENDING.
func (s *SQLiteStore) CreateComplaint(complaint models.Complaint) (models.Complaint, error) {
	complaint = prepareComplaint(complaint)
	_, err := s.db.Exec(`INSERT INTO complaints (id, type, description, location, status, created_at, citizen_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		complaint.ID, complaint.Type, complaint.Description, complaint.Location, string(complaint.Status), complaint.CreatedAt, complaint.CitizenID)
	if err != nil {
		slog.Error("SQLiteStore.CreateComplaint failed", "error", err, "citizenID", complaint.CitizenID)
		return models.Complaint{}, fmt.Errorf("failed to insert complaint: %w", err)
	}
	slog.Info("SQLiteStore.CreateComplaint succeeded", "complaintID", complaint.ID, "citizenID", complaint.CitizenID)
	return complaint, nil
}

// FindComplaintsByPhone implements Store, newest first.
func (s *SQLiteStore) FindComplaintsByPhone(phone string) ([]models.Complaint, error) {
	rows, err := s.db.Query(`SELECT c.id, c.type, c.description, c.location, c.status, c.created_at, c.citizen_id
		FROM complaints c JOIN citizens z ON z.id = c.citizen_id
		WHERE z.phone = ? ORDER BY c.created_at DESC`, phone)
	if err != nil {
		slog.Error("SQLiteStore.FindComplaintsByPhone query failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query complaints: %w", err)
	}
	defer rows.Close()
	return scanComplaints(rows)
}

// FindComplaintByID implements Store with the ownership rule.
func (s *SQLiteStore) FindComplaintByID(id, phone string) (*models.Complaint, error) {
	row := s.db.QueryRow(`SELECT c.id, c.type, c.description, c.location, c.status, c.created_at, c.citizen_id
		FROM complaints c JOIN citizens z ON z.id = c.citizen_id
		WHERE c.id = ? AND z.phone = ?`, id, phone)
	return scanComplaintRow(row)
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
