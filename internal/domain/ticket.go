package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusCompleted  TicketStatus = "COMPLETED"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
)

// TicketPriority enumerates urgency categories.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the orchestrator's view of a maintenance or service ticket.
// Creation, manual status changes and SLA deadline computation happen
// elsewhere; the orchestrator only mutates the assignment and escalation
// fields.
type Ticket struct {
	ID                       string
	Title                    string
	Priority                 TicketPriority
	Status                   TicketStatus
	AssignedGroup            string
	AssignedTo               *string
	EscalationLevel          EscalationLevel
	AssignmentAcknowledgedAt *time.Time
	NextEscalationAt         *time.Time
	SLABreachAt              *time.Time
	IsCrisis                 bool
	AutoAssignmentAttempts   int
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Orchestrable reports whether the ticket is still eligible for automatic
// assignment or escalation.
func (t *Ticket) Orchestrable() bool {
	return t.Status == TicketStatusPending || t.Status == TicketStatusInProgress
}

// PendingAcknowledgment reports whether an assignee has the ticket but has
// not confirmed receipt yet.
func (t *Ticket) PendingAcknowledgment() bool {
	return t.AssignedTo != nil && t.AssignmentAcknowledgedAt == nil
}
