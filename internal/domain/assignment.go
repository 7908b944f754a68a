package domain

import "time"

// AssignmentType labels how an assignment came about.
type AssignmentType string

const (
	AssignmentTypeAuto         AssignmentType = "AUTO"
	AssignmentTypeReassignment AssignmentType = "REASSIGNMENT"
	AssignmentTypeManual       AssignmentType = "MANUAL"
)

// AssignmentHistoryEntry is an append-only audit record for assignments.
type AssignmentHistoryEntry struct {
	ID         string
	TicketID   string
	AssigneeID string
	Type       AssignmentType
	Reason     string
	CreatedAt  time.Time
}
