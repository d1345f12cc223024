package models

import "time"

type MatchStatus string

const (
	StatusScheduled      MatchStatus = "scheduled"
	StatusInProgress     MatchStatus = "in_progress"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCanceled  MatchStatus = "canceled"
)

// FinalsMatch: матч сетки плей-офф финальной фазы. Participant ids refer to
// phase_participants rows.
type FinalsMatch struct {
	ID              int         `json:"id"`
	PhaseID         int         `json:"phase_id"`
	UID             string      `json:"uid"`
	Round           int         `json:"round"`
	OrderInRound    int         `json:"order_in_round"`
	Participant1ID  *int        `json:"participant1_id,omitempty"`
	Participant2ID  *int        `json:"participant2_id,omitempty"`
	SourceMatch1UID *string     `json:"source_match1_uid,omitempty"`
	SourceMatch2UID *string     `json:"source_match2_uid,omitempty"`
	IsBye           bool        `json:"is_bye"`
	WinnerID        *int        `json:"winner_id,omitempty"`
	Status          MatchStatus `json:"status"`
	CreatedAt       *time.Time  `json:"created_at,omitempty"`
}

// MatchUpload: скриншот/реплей результата, загруженный игроком.
type MatchUpload struct {
	ID          int       `json:"id"`
	MatchID     int       `json:"match_id"`
	UserID      int       `json:"user_id"`
	ObjectKey   string    `json:"-"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}
