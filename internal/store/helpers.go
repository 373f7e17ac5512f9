package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Luks-code/luna-sub000/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable unique database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation reports whether err is a uniqueness constraint error
// from either supported driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// placeholder returns the n-th SQL placeholder for the given style
// ("$" for Postgres, anything else for SQLite).
func placeholder(style string, n int) string {
	if style == "$" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// prepareComplaint fills generated fields on a complaint before insert.
func prepareComplaint(c models.Complaint) models.Complaint {
	if c.ID == "" {
		c.ID = newComplaintID()
	}
	if c.Status == "" {
		c.Status = models.ComplaintStatusPending
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return c
}

// findCitizen looks a citizen up by document id first, then phone.
// Returns nil when no record matches either key.
func findCitizen(db *sql.DB, citizen models.Citizen, style string) (*models.Citizen, error) {
	query := `SELECT id, name, COALESCE(document_id, ''), COALESCE(phone, ''), address FROM citizens WHERE `

	if citizen.DocumentID != "" {
		found, err := scanCitizenRow(db.QueryRow(query+"document_id = "+placeholder(style, 1), citizen.DocumentID))
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	if citizen.Phone != "" {
		found, err := scanCitizenRow(db.QueryRow(query+"phone = "+placeholder(style, 1), citizen.Phone))
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, nil
}

// updateCitizen merges incoming non-empty fields into an existing record
// and persists the result. A document id that conflicts with the existing
// record's identity yields ErrDuplicateCitizen.
func updateCitizen(db *sql.DB, existing, incoming models.Citizen, style string) (models.Citizen, error) {
	if incoming.DocumentID != "" && existing.DocumentID != "" && existing.DocumentID != incoming.DocumentID {
		return models.Citizen{}, ErrDuplicateCitizen
	}
	if incoming.Name != "" {
		existing.Name = incoming.Name
	}
	if incoming.DocumentID != "" {
		existing.DocumentID = incoming.DocumentID
	}
	if incoming.Phone != "" {
		existing.Phone = incoming.Phone
	}
	if incoming.Address != "" {
		existing.Address = incoming.Address
	}

	query := fmt.Sprintf(`UPDATE citizens SET name = %s, document_id = %s, phone = %s, address = %s WHERE id = %s`,
		placeholder(style, 1), placeholder(style, 2), placeholder(style, 3), placeholder(style, 4), placeholder(style, 5))
	_, err := db.Exec(query, existing.Name, nilIfEmpty(existing.DocumentID), nilIfEmpty(existing.Phone), existing.Address, existing.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Citizen{}, ErrDuplicateCitizen
		}
		return models.Citizen{}, fmt.Errorf("failed to update citizen %d: %w", existing.ID, err)
	}
	return existing, nil
}

// scanCitizenRow scans a Citizen from a single sql.Row, mapping no-rows to
// nil.
func scanCitizenRow(row *sql.Row) (*models.Citizen, error) {
	var c models.Citizen
	err := row.Scan(&c.ID, &c.Name, &c.DocumentID, &c.Phone, &c.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan citizen failed: %w", err)
	}
	return &c, nil
}

// scanComplaints scans all complaint rows.
func scanComplaints(rows *sql.Rows) ([]models.Complaint, error) {
	var out []models.Complaint
	for rows.Next() {
		var c models.Complaint
		var status string
		if err := rows.Scan(&c.ID, &c.Type, &c.Description, &c.Location, &status, &c.CreatedAt, &c.CitizenID); err != nil {
			return nil, fmt.Errorf("scan complaint failed: %w", err)
		}
		c.Status = models.ComplaintStatus(status)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complaints failed: %w", err)
	}
	return out, nil
}

// scanComplaintRow scans a Complaint from a single sql.Row, mapping
// no-rows to nil (not found and not owned look identical).
func scanComplaintRow(row *sql.Row) (*models.Complaint, error) {
	var c models.Complaint
	var status string
	err := row.Scan(&c.ID, &c.Type, &c.Description, &c.Location, &status, &c.CreatedAt, &c.CitizenID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan complaint failed: %w", err)
	}
	c.Status = models.ComplaintStatus(status)
	return &c, nil
}
