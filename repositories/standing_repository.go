package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/supabase"
)

// StandingRepository reads the ranking produced by the backend. Rows are
// returned in the backend's order and never re-sorted here.
type StandingRepository interface {
	ListByPhase(ctx context.Context, phaseID int) ([]models.PhaseStanding, error)
	Leaderboard(ctx context.Context, tournamentID, limit int) ([]models.PhaseStanding, error)
}

type supabaseStandingRepository struct {
	caller Caller
}

func NewStandingRepository(caller Caller) StandingRepository {
	return &supabaseStandingRepository{caller: caller}
}

func standingFromRecord(rec supabase.Record) models.PhaseStanding {
	return models.PhaseStanding{
		PhaseID:       int(rec.Int("phase_id")),
		ParticipantID: int(rec.Int("participant_id")),
		TeamID:        rec.IntPtr("team_id"),
		UserID:        rec.IntPtr("user_id"),
		SeedingRank:   int(rec.Int("seeding_rank")),
		Points:        int(rec.Int("points")),
		MatchesPlayed: int(rec.Int("matches_played")),
		Wins:          int(rec.Int("wins")),
		Losses:        int(rec.Int("losses")),
		Status:        models.ParticipantStatus(rec.String("status")),
		Rank:          rec.IntPtr("rank"),
	}
}

func standingsFromResult(out any) []models.PhaseStanding {
	rows := rowsToRecords(out)
	standings := make([]models.PhaseStanding, 0, len(rows))
	for _, rec := range rows {
		standings = append(standings, standingFromRecord(rec))
	}
	return standings
}

func (r *supabaseStandingRepository) ListByPhase(ctx context.Context, phaseID int) ([]models.PhaseStanding, error) {
	out, err := r.caller.RPC(ctx, "get_phase_standings", supabase.Record{"p_phase_id": phaseID})
	if err != nil {
		return nil, fmt.Errorf("failed to load standings of phase %d: %w", phaseID, err)
	}
	return standingsFromResult(out), nil
}

func (r *supabaseStandingRepository) Leaderboard(ctx context.Context, tournamentID, limit int) ([]models.PhaseStanding, error) {
	out, err := r.caller.RPC(ctx, "get_tournament_leaderboard", supabase.Record{
		"p_tournament_id": tournamentID,
		"p_limit":         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard of tournament %d: %w", tournamentID, err)
	}
	return standingsFromResult(out), nil
}
