package events

import (
	"time"

	"github.com/spec-kit/ops-orchestrator/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketReassigned EventType = "ticket_reassigned"
	EventTicketEscalated  EventType = "ticket_escalated"
	EventCrisisAssigned   EventType = "crisis_assigned"
)

// Event represents an orchestration event emitted after a ticket mutation
// has been committed. Subscribers produce notifications from it; their
// failures never reach the publisher.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Group     string      `json:"group"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	NewAssigneeID      string    `json:"new_assignee_id"`
	PreviousAssigneeID string    `json:"previous_assignee_id"`
	AcknowledgeBy      time.Time `json:"acknowledge_by"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	PreviousLevel domain.EscalationLevel `json:"previous_level"`
	NewLevel      domain.EscalationLevel `json:"new_level"`
	Reason        string                 `json:"reason"`
	BreachedAt    *time.Time             `json:"breached_at,omitempty"`
}

// CrisisAssignedPayload payload.
type CrisisAssignedPayload struct {
	AssigneeID    string            `json:"assignee_id"`
	StaffLevel    domain.StaffLevel `json:"staff_level"`
	AcknowledgeBy time.Time         `json:"acknowledge_by"`
}
