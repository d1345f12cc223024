package models

import "time"

// ParticipantStatus: active -> qualified | eliminated. Both outcomes are terminal.
type ParticipantStatus string

const (
	ParticipantStatusActive     ParticipantStatus = "active"
	ParticipantStatusQualified  ParticipantStatus = "qualified"
	ParticipantStatusEliminated ParticipantStatus = "eliminated"
)

// PhaseParticipant связывает фазу с командой или игроком.
type PhaseParticipant struct {
	ID          int               `json:"id" db:"id"`
	PhaseID     int               `json:"phase_id" db:"phase_id"`
	TeamID      *int              `json:"team_id,omitempty" db:"team_id"`
	UserID      *int              `json:"user_id,omitempty" db:"user_id"`
	SeedingRank int               `json:"seeding_rank" db:"seeding_rank"`
	Points      int               `json:"points" db:"points"`
	Status      ParticipantStatus `json:"status" db:"status"`
	CreatedAt   *time.Time        `json:"created_at,omitempty" db:"created_at"`
}

// PhaseStanding is one row of the phase_standings ranking view. Rows come back
// already ranked by the backend.
type PhaseStanding struct {
	PhaseID       int               `json:"phase_id" db:"phase_id"`
	ParticipantID int               `json:"participant_id" db:"participant_id"`
	TeamID        *int              `json:"team_id,omitempty" db:"team_id"`
	UserID        *int              `json:"user_id,omitempty" db:"user_id"`
	SeedingRank   int               `json:"seeding_rank" db:"seeding_rank"`
	Points        int               `json:"points" db:"points"`
	MatchesPlayed int               `json:"matches_played" db:"matches_played"`
	Wins          int               `json:"wins" db:"wins"`
	Losses        int               `json:"losses" db:"losses"`
	Status        ParticipantStatus `json:"status" db:"status"`
	Rank          *int              `json:"rank,omitempty" db:"rank"`
}
