package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/supabase"
)

const tournamentsTable = "tournaments"

var ErrTournamentNotFound = errors.New("tournament not found")

type TournamentRepository interface {
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	Count(ctx context.Context, where supabase.Filter) (int, error)
}

type supabaseTournamentRepository struct {
	db SQLExecutor
}

func NewTournamentRepository(db SQLExecutor) TournamentRepository {
	return &supabaseTournamentRepository{db: db}
}

func (r *supabaseTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func tournamentFromRecord(rec supabase.Record) *models.Tournament {
	t := &models.Tournament{
		ID:                  int(rec.Int("id")),
		Name:                rec.String("name"),
		Status:              models.TournamentStatus(rec.String("status")),
		TotalWeeks:          int(rec.Int("total_weeks")),
		InitialParticipants: int(rec.Int("initial_participants")),
		FinalsParticipants:  int(rec.Int("finals_participants")),
		StartDate:           timePtr(rec, "start_date"),
		CreatedAt:           rec.Time("created_at"),
	}
	if !rec.IsNull("description") {
		d := rec.String("description")
		t.Description = &d
	}
	return t
}

func (r *supabaseTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	rows, err := r.db.Select(ctx, supabase.Query{
		Table: tournamentsTable,
		Where: supabase.Filter{supabase.Where("id", id)},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrTournamentNotFound
	}
	return tournamentFromRecord(rows[0]), nil
}

func (r *supabaseTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	n, err := r.getExecutor(exec).Update(ctx, tournamentsTable,
		supabase.Record{"status": string(status)},
		supabase.Filter{supabase.Where("id", id)})
	if err != nil {
		return fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	return checkAffectedRows(n, ErrTournamentNotFound)
}

func (r *supabaseTournamentRepository) Count(ctx context.Context, where supabase.Filter) (int, error) {
	return countRows(ctx, r.db, tournamentsTable, where)
}
