package models

type DashboardStats struct {
	UsersTotal             int `json:"users_total"`
	TournamentsTotal       int `json:"tournaments_total"`
	ActiveTournaments      int `json:"active_tournaments"`
	ActivePhases           int `json:"active_phases"`
	ActiveParticipants     int `json:"active_participants"`
	EliminatedParticipants int `json:"eliminated_participants"`
}

// TournamentOverview собирает фазы турнира и таблицу текущей фазы.
type TournamentOverview struct {
	TournamentID int             `json:"tournament_id"`
	Phases       []Phase         `json:"phases"`
	CurrentPhase *Phase          `json:"current_phase,omitempty"`
	Standings    []PhaseStanding `json:"standings"`
	Leaderboard  []PhaseStanding `json:"leaderboard"`
}
