// Package store provides durable storage backends for citizens and
// complaints.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/Luks-code/luna-sub000/internal/models"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore implements Store over a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// FindOrCreateCitizen implements Store.
func (s *PostgresStore) FindOrCreateCitizen(citizen models.Citizen) (models.Citizen, error) {
	existing, err := findCitizen(s.db, citizen, "$")
	if err != nil {
		slog.Error("PostgresStore.FindOrCreateCitizen lookup failed", "error", err, "phone", citizen.Phone)
		return models.Citizen{}, err
	}
	if existing != nil {
		merged, err := updateCitizen(s.db, *existing, citizen, "$")
		if err != nil {
			slog.Error("PostgresStore.FindOrCreateCitizen update failed", "error", err, "citizenID", existing.ID)
			return models.Citizen{}, err
		}
		slog.Debug("PostgresStore.FindOrCreateCitizen reconciled existing citizen", "citizenID", merged.ID)
		return merged, nil
	}

	var id int64
	err = s.db.QueryRow(`INSERT INTO citizens (name, document_id, phone, address) VALUES ($1, $2, $3, $4) RETURNING id`,
		citizen.Name, nilIfEmpty(citizen.DocumentID), nilIfEmpty(citizen.Phone), citizen.Address).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Citizen{}, ErrDuplicateCitizen
		}
		slog.Error("PostgresStore.FindOrCreateCitizen insert failed", "error", err, "phone", citizen.Phone)
		return models.Citizen{}, fmt.Errorf("failed to insert citizen: %w", err)
	}
	citizen.ID = id
	slog.Debug("PostgresStore.FindOrCreateCitizen created citizen", "citizenID", id)
	return citizen, nil
}

// CreateComplaint implements Store. Status defaults to PENDING.
func (s *PostgresStore) CreateComplaint(complaint models.Complaint) (models.Complaint, error) {
	complaint = prepareComplaint(complaint)
	_, err := s.db.Exec(`INSERT INTO complaints (id, type, description, location, status, created_at, citizen_id) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		complaint.ID, complaint.Type, complaint.Description, complaint.Location, string(complaint.Status), complaint.CreatedAt, complaint.CitizenID)
	if err != nil {
		slog.Error("PostgresStore.CreateComplaint failed", "error", err, "citizenID", complaint.CitizenID)
		return models.Complaint{}, fmt.Errorf("failed to insert complaint: %w", err)
	}
	slog.Info("PostgresStore.CreateComplaint succeeded", "complaintID", complaint.ID, "citizenID", complaint.CitizenID)
	return complaint, nil
}

// FindComplaintsByPhone implements Store, newest first.
func (s *PostgresStore) FindComplaintsByPhone(phone string) ([]models.Complaint, error) {
	rows, err := s.db.Query(`SELECT c.id, c.type, c.description, c.location, c.status, c.created_at, c.citizen_id
		FROM complaints c JOIN citizens z ON z.id = c.citizen_id
		WHERE z.phone = $1 ORDER BY c.created_at DESC`, phone)
	if err != nil {
		slog.Error("PostgresStore.FindComplaintsByPhone query failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query complaints: %w", err)
	}
	defer rows.Close()
	return scanComplaints(rows)
}

// FindComplaintByID implements Store with the ownership rule.
func (s *PostgresStore) FindComplaintByID(id, phone string) (*models.Complaint, error) {
	row := s.db.QueryRow(`SELECT c.id, c.type, c.description, c.location, c.status, c.created_at, c.citizen_id
		FROM complaints c JOIN citizens z ON z.id = c.citizen_id
		WHERE c.id = $1 AND z.phone = $2`, id, phone)
	return scanComplaintRow(row)
}

// Close releases the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
