package models

import "time"

type PhaseType string

const (
	PhaseTypeElimination PhaseType = "elimination"
	PhaseTypeFinals      PhaseType = "finals"
)

// PhaseStatus only moves forward: upcoming -> active -> completed.
type PhaseStatus string

const (
	PhaseStatusUpcoming  PhaseStatus = "upcoming"
	PhaseStatusActive    PhaseStatus = "active"
	PhaseStatusCompleted PhaseStatus = "completed"
)

// CanTransitionTo reports whether next is the single allowed successor of s.
func (s PhaseStatus) CanTransitionTo(next PhaseStatus) bool {
	switch s {
	case PhaseStatusUpcoming:
		return next == PhaseStatusActive
	case PhaseStatusActive:
		return next == PhaseStatusCompleted
	}
	return false
}

// Phase: одна неделя (раунд отсева) турнира.
type Phase struct {
	ID               int         `json:"id" db:"id"`
	TournamentID     int         `json:"tournament_id" db:"tournament_id"`
	PhaseNumber      int         `json:"phase_number" db:"phase_number"`
	Name             string      `json:"name" db:"name"`
	Type             PhaseType   `json:"type" db:"type"`
	StartDate        time.Time   `json:"start_date" db:"start_date"`
	EndDate          time.Time   `json:"end_date" db:"end_date"`
	MaxParticipants  int         `json:"max_participants" db:"max_participants"`
	AdvancementSlots int         `json:"advancement_slots" db:"advancement_slots"`
	EliminationSlots int         `json:"elimination_slots" db:"elimination_slots"`
	Status           PhaseStatus `json:"status" db:"status"`
	CreatedAt        *time.Time  `json:"created_at,omitempty" db:"created_at"`
}

func (p Phase) IsFinals() bool {
	return p.Type == PhaseTypeFinals
}
