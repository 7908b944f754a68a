package domain

import (
	"fmt"
	"time"
)

// EscalationLevel is the seniority tier a ticket has been escalated to.
// Zero means the ticket has never been assigned or escalated.
type EscalationLevel int

const (
	EscalationLevel1 EscalationLevel = 1
	EscalationLevel2 EscalationLevel = 2
	EscalationLevel3 EscalationLevel = 3
	EscalationLevel4 EscalationLevel = 4
	EscalationLevel5 EscalationLevel = 5
)

// MaxEscalationLevel is terminal: tickets at this level are never escalated
// further automatically.
const MaxEscalationLevel = EscalationLevel5

// DefaultEscalationWindow is used for levels missing from the window table.
const DefaultEscalationWindow = 30 * time.Minute

// escalationWindows maps each level to the deadline granted before the next
// automatic remediation.
var escalationWindows = map[EscalationLevel]time.Duration{
	EscalationLevel1: 10 * time.Minute,
	EscalationLevel2: 10 * time.Minute,
	EscalationLevel3: 15 * time.Minute,
	EscalationLevel4: 30 * time.Minute,
	EscalationLevel5: 60 * time.Minute,
}

// EscalationWindow returns the escalation window for a level, falling back
// to DefaultEscalationWindow for unmapped levels.
func EscalationWindow(level EscalationLevel) time.Duration {
	if w, ok := escalationWindows[level]; ok {
		return w
	}
	return DefaultEscalationWindow
}

// StaffRole is a notification audience tier.
type StaffRole string

const (
	RoleFrontline      StaffRole = "FRONTLINE"
	RoleSupervisor     StaffRole = "SUPERVISOR"
	RoleAdministrative StaffRole = "ADMINISTRATIVE"
)

// escalationAudiences maps each level to the role notified when a ticket
// reaches it.
var escalationAudiences = map[EscalationLevel]StaffRole{
	EscalationLevel1: RoleFrontline,
	EscalationLevel2: RoleSupervisor,
	EscalationLevel3: RoleAdministrative,
	EscalationLevel4: RoleAdministrative,
	EscalationLevel5: RoleAdministrative,
}

// AudienceForLevel returns the role notified at a level, falling back to
// the administrative role for unmapped levels.
func AudienceForLevel(level EscalationLevel) StaffRole {
	if role, ok := escalationAudiences[level]; ok {
		return role
	}
	return RoleAdministrative
}

// StaffLevels returns the group membership levels covered by a role.
func (r StaffRole) StaffLevels() []StaffLevel {
	switch r {
	case RoleFrontline:
		return []StaffLevel{StaffLevelFrontline}
	case RoleSupervisor:
		return []StaffLevel{StaffLevelSupervisor}
	default:
		return []StaffLevel{3, 4, 5}
	}
}

// ValidateEscalationTables checks the window and audience tables cover every
// level. Called once at startup so a gap is a boot failure, not a per-ticket
// surprise.
func ValidateEscalationTables() error {
	for level := EscalationLevel1; level <= MaxEscalationLevel; level++ {
		if _, ok := escalationWindows[level]; !ok {
			return fmt.Errorf("escalation window table missing level %d", level)
		}
		if _, ok := escalationAudiences[level]; !ok {
			return fmt.Errorf("escalation audience table missing level %d", level)
		}
	}
	return nil
}

// EscalationType labels what triggered an escalation.
type EscalationType string

const (
	EscalationTypeSLABreach        EscalationType = "SLA_BREACH"
	EscalationTypeNoAcknowledgment EscalationType = "NO_ACKNOWLEDGMENT"
)

// EscalationLogEntry is an append-only audit record for escalations.
type EscalationLogEntry struct {
	ID             string
	TicketID       string
	EscalationType EscalationType
	Reason         string
	Metadata       map[string]any
	CreatedAt      time.Time
}
