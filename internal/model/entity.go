package model

import "time"

// Ticket status values.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

// Ticket priority values.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Client service levels.
const (
	ServiceStandard = "standard"
	ServicePremium  = "premium"
	ServiceVIP      = "vip"
)

// Alert severity values.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// ValidTicketStatus reports whether s is a known ticket status.
func ValidTicketStatus(s string) bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// ValidTicketPriority reports whether p is a known ticket priority.
func ValidTicketPriority(p string) bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Client is a managed customer whose infrastructure is tracked by the system.
type Client struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	ContactInfo  string    `json:"contact_info" db:"contact_info"`
	ServiceLevel string    `json:"service_level" db:"service_level"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Ticket is a unit of support work, optionally assigned to an operator.
type Ticket struct {
	ID            int64      `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Status        string     `json:"status" db:"status"`
	Priority      string     `json:"priority" db:"priority"`
	ClientID      int64      `json:"client_id" db:"client_id"`
	AssigneeID    *int64     `json:"assignee_id,omitempty" db:"assignee_id"`
	SLAExpiration *time.Time `json:"sla_expiration,omitempty" db:"sla_expiration"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Alert is a monitoring event. Acknowledging an alert records which operator
// saw it and when.
type Alert struct {
	ID             int64      `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	Description    string     `json:"description" db:"description"`
	Severity       string     `json:"severity" db:"severity"`
	Status         string     `json:"status" db:"status"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	AcknowledgedBy *int64     `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
