package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusOnHold     TicketStatus = "on_hold"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusArchived   TicketStatus = "archived"
)

// TicketStatuses lists every status in workflow order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusOnHold,
	TicketStatusPending,
	TicketStatusResolved,
	TicketStatusArchived,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool { return contains(TicketStatuses, s) }

// Closed reports whether a new response on a ticket in this state reopens it.
func (s TicketStatus) Closed() bool {
	return s == TicketStatusResolved || s == TicketStatusArchived
}

// ParseTicketStatus validates an external status value.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	return parseEnum("status", raw, TicketStatuses)
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

var TicketPriorities = []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool { return contains(TicketPriorities, p) }

// ParseTicketPriority validates an external priority value.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	return parseEnum("priority", raw, TicketPriorities)
}

// Ticket is the aggregate for support requests. OrganizationID and CreatedBy
// never change after creation; Version increments on every stored update.
type Ticket struct {
	ID             string
	OrganizationID string
	Title          string
	Description    string
	Category       string
	Priority       TicketPriority
	Status         TicketStatus
	CreatedBy      string
	AssignedTo     *string
	ResolvedAt     *time.Time
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Response is a comment on a ticket. Internal responses are hidden from customers.
type Response struct {
	ID         string
	TicketID   string
	UserID     string
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}
