package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/supabase"
)

const registrationsTable = "tournament_registrations"

type RegistrationRepository interface {
	// ListApproved returns approved registrations in registration order,
	// at most limit rows when limit > 0.
	ListApproved(ctx context.Context, exec SQLExecutor, tournamentID, limit int) ([]models.Registration, error)
}

type supabaseRegistrationRepository struct {
	db SQLExecutor
}

func NewRegistrationRepository(db SQLExecutor) RegistrationRepository {
	return &supabaseRegistrationRepository{db: db}
}

func (r *supabaseRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *supabaseRegistrationRepository) ListApproved(ctx context.Context, exec SQLExecutor, tournamentID, limit int) ([]models.Registration, error) {
	rows, err := r.getExecutor(exec).Select(ctx, supabase.Query{
		Table: registrationsTable,
		Where: supabase.Filter{
			supabase.Where("tournament_id", tournamentID),
			supabase.Where("status", string(models.RegistrationApproved)),
		},
		Order: supabase.ParseOrder("created_at.asc,id.asc"),
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations of tournament %d: %w", tournamentID, err)
	}
	out := make([]models.Registration, 0, len(rows))
	for _, rec := range rows {
		out = append(out, models.Registration{
			ID:           int(rec.Int("id")),
			TournamentID: int(rec.Int("tournament_id")),
			TeamID:       rec.IntPtr("team_id"),
			UserID:       rec.IntPtr("user_id"),
			Status:       models.RegistrationStatus(rec.String("status")),
			CreatedAt:    rec.Time("created_at"),
		})
	}
	return out, nil
}
