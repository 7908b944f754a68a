package domain

import "time"

// AvailabilityStatus enumerates staff availability states.
type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "AVAILABLE"
	AvailabilityBusy      AvailabilityStatus = "BUSY"
	AvailabilityOffline   AvailabilityStatus = "OFFLINE"
)

// StaffLevel is a tier within a staff group. Levels 1 and 2 form the
// assignable pool; levels 3 through 5 only receive escalation notifications.
type StaffLevel int

const (
	StaffLevelFrontline  StaffLevel = 1
	StaffLevelSupervisor StaffLevel = 2
)

// MaxAssignableStaffLevel caps the pool scanned for direct auto-assignment.
const MaxAssignableStaffLevel = StaffLevelSupervisor

// GroupMembership ties a staff member to a group at a given level.
type GroupMembership struct {
	Group string
	Level StaffLevel
}

// StaffMember models a person who can be assigned tickets.
type StaffMember struct {
	ID             string
	Name           string
	Memberships    []GroupMembership
	Availability   AvailabilityStatus
	IsAvailable    bool
	AutoOfflineAt  *time.Time
	LastAssignedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Assignable reports whether the member can currently receive tickets.
func (s *StaffMember) Assignable() bool {
	return s.IsAvailable && s.Availability == AvailabilityAvailable
}

// LevelIn returns the member's level in the given group, or 0 when the
// member does not belong to it.
func (s *StaffMember) LevelIn(group string) StaffLevel {
	for _, m := range s.Memberships {
		if m.Group == group {
			return m.Level
		}
	}
	return 0
}
