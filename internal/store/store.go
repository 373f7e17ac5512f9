// Package store provides durable storage backends for citizens and
// complaints.
//
// It includes PostgreSQL and SQLite implementations with embedded
// migrations, plus an in-memory implementation for tests.
package store

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Luks-code/luna-sub000/internal/models"
)

// ErrDuplicateCitizen is returned when a citizen insert or update violates
// the documentId/phone uniqueness constraints.
var ErrDuplicateCitizen = errors.New("citizen identity conflicts with an existing record")

// Store is the persistence contract consumed by the orchestrator and the
// command dispatcher.
//
// FindOrCreateCitizen reconciles by documentId first, then phone: a citizen
// found under either key is updated in place with the supplied non-empty
// fields rather than duplicated.
type Store interface {
	FindOrCreateCitizen(citizen models.Citizen) (models.Citizen, error)
	CreateComplaint(complaint models.Complaint) (models.Complaint, error)
	FindComplaintsByPhone(phone string) ([]models.Complaint, error)
	// FindComplaintByID returns nil when the id does not exist or belongs
	// to a different phone; the two cases are deliberately indistinguishable.
	FindComplaintByID(id, phone string) (*models.Complaint, error)
	Close() error
}

// Opts holds configuration options for database-backed stores.
type Opts struct {
	DSN string
}

// Option defines a configuration option for database-backed stores.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType inspects a DSN and reports "postgres" or "sqlite".
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// newComplaintID generates a complaint record id.
func newComplaintID() string {
	return uuid.NewString()
}

// InMemoryStore is a Store backed by process memory, for tests.
type InMemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	citizens   []models.Citizen
	complaints []models.Complaint
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

// FindOrCreateCitizen implements Store.
func (s *InMemoryStore) FindOrCreateCitizen(citizen models.Citizen) (models.Citizen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match := -1
	for i, c := range s.citizens {
		if citizen.DocumentID != "" && c.DocumentID == citizen.DocumentID {
			match = i
			break
		}
	}
	if match < 0 {
		for i, c := range s.citizens {
			if citizen.Phone != "" && c.Phone == citizen.Phone {
				match = i
				break
			}
		}
	}

	if match >= 0 {
		existing := &s.citizens[match]
		// Reject re-assigning a document id already owned by someone else.
		if citizen.DocumentID != "" && existing.DocumentID != "" && existing.DocumentID != citizen.DocumentID {
			return models.Citizen{}, ErrDuplicateCitizen
		}
		if citizen.Name != "" {
			existing.Name = citizen.Name
		}
		if citizen.DocumentID != "" {
			existing.DocumentID = citizen.DocumentID
		}
		if citizen.Phone != "" {
			existing.Phone = citizen.Phone
		}
		if citizen.Address != "" {
			existing.Address = citizen.Address
		}
		return *existing, nil
	}

	citizen.ID = s.nextID
	s.nextID++
	s.citizens = append(s.citizens, citizen)
	return citizen, nil
}

// CreateComplaint implements Store. Status defaults to PENDING.
func (s *InMemoryStore) CreateComplaint(complaint models.Complaint) (models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if complaint.ID == "" {
		complaint.ID = newComplaintID()
	}
	if complaint.Status == "" {
		complaint.Status = models.ComplaintStatusPending
	}
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = time.Now()
	}
	s.complaints = append(s.complaints, complaint)
	return complaint, nil
}

// FindComplaintsByPhone implements Store, newest first.
func (s *InMemoryStore) FindComplaintsByPhone(phone string) ([]models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var citizenID int64 = -1
	for _, c := range s.citizens {
		if c.Phone == phone {
			citizenID = c.ID
			break
		}
	}
	var out []models.Complaint
	for _, c := range s.complaints {
		if c.CitizenID == citizenID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// FindComplaintByID implements Store with the ownership rule.
func (s *InMemoryStore) FindComplaintByID(id, phone string) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.complaints {
		if c.ID != id {
			continue
		}
		for _, cit := range s.citizens {
			if cit.ID == c.CitizenID && cit.Phone == phone {
				found := c
				return &found, nil
			}
		}
		return nil, nil
	}
	return nil, nil
}

// Close implements Store.
func (s *InMemoryStore) Close() error { return nil }
