// Package models defines the core data structures shared across Luna components.
package models

import "time"

// ComplaintStatus represents the lifecycle status of a persisted complaint.
type ComplaintStatus string

const (
	ComplaintStatusPending    ComplaintStatus = "PENDING"
	ComplaintStatusInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintStatusResolved   ComplaintStatus = "RESOLVED"
	ComplaintStatusCancelled  ComplaintStatus = "CANCELLED"
)

// Citizen is a durable record of a complaint reporter, reconciled by
// document id first and phone second.
type Citizen struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	DocumentID string `json:"documentId"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

// Complaint is a durable citizen-reported municipal issue record.
type Complaint struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	Status      ComplaintStatus `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	CitizenID   int64           `json:"citizenId"`
}

// Response represents an incoming message from a user on any transport.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// Receipt records a message delivery status event.
type Receipt struct {
	To     string     `json:"to"`
	Status StatusType `json:"status"`
	Time   int64      `json:"time"`
}

// StatusType represents the delivery status of an outbound message.
type StatusType string

const (
	StatusTypeSent      StatusType = "sent"
	StatusTypeDelivered StatusType = "delivered"
	StatusTypeRead      StatusType = "read"
	StatusTypeFailed    StatusType = "failed"
)
