package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusSoon         TournamentStatus = "soon"
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

// Tournament представляет турнир в формате weekly finals.
type Tournament struct {
	ID                  int              `json:"id" db:"id"`
	Name                string           `json:"name" db:"name"`
	Description         *string          `json:"description,omitempty" db:"description"`
	Status              TournamentStatus `json:"status" db:"status"`
	TotalWeeks          int              `json:"total_weeks" db:"total_weeks"`
	InitialParticipants int              `json:"initial_participants" db:"initial_participants"`
	FinalsParticipants  int              `json:"finals_participants" db:"finals_participants"`
	StartDate           *time.Time       `json:"start_date,omitempty" db:"start_date"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`

	Phases []Phase `json:"phases,omitempty" db:"-"`
}

// WeeklyFinalsConfig задаёт сетку фаз: сколько недель, сколько участников на
// старте и сколько доходит до финала.
type WeeklyFinalsConfig struct {
	TotalWeeks          int `json:"total_weeks"`
	InitialParticipants int `json:"initial_participants"`
	FinalsParticipants  int `json:"finals_participants"`
}

// Config returns the weekly finals settings stored on the tournament row.
func (t Tournament) Config() WeeklyFinalsConfig {
	return WeeklyFinalsConfig{
		TotalWeeks:          t.TotalWeeks,
		InitialParticipants: t.InitialParticipants,
		FinalsParticipants:  t.FinalsParticipants,
	}
}
