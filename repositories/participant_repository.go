package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/supabase"
)

const phaseParticipantsTable = "phase_participants"

var (
	ErrPhaseParticipantNotFound = errors.New("phase participant not found")
	ErrPhaseParticipantConflict = errors.New("participant is already in this phase")
	ErrPhaseParticipantInvalid  = errors.New("phase participant references a missing phase, team or user")
)

type PhaseParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.PhaseParticipant) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.PhaseParticipant, error)
	// ListByPhase returns participants in seeding order. A nil status lists all.
	ListByPhase(ctx context.Context, exec SQLExecutor, phaseID int, status *models.ParticipantStatus) ([]models.PhaseParticipant, error)
	// Qualify marks an active participant as qualified.
	Qualify(ctx context.Context, exec SQLExecutor, id int) error
	// EliminateRemaining marks every still active participant of the phase
	// as eliminated and returns how many were changed.
	EliminateRemaining(ctx context.Context, exec SQLExecutor, phaseID int) (int64, error)
	AddPoints(ctx context.Context, id, points int) (int, error)
	Count(ctx context.Context, where supabase.Filter) (int, error)
}

type supabasePhaseParticipantRepository struct {
	db     SQLExecutor
	caller Caller
}

func NewPhaseParticipantRepository(db SQLExecutor, caller Caller) PhaseParticipantRepository {
	return &supabasePhaseParticipantRepository{db: db, caller: caller}
}

func (r *supabasePhaseParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func participantFromRecord(rec supabase.Record) models.PhaseParticipant {
	return models.PhaseParticipant{
		ID:          int(rec.Int("id")),
		PhaseID:     int(rec.Int("phase_id")),
		TeamID:      rec.IntPtr("team_id"),
		UserID:      rec.IntPtr("user_id"),
		SeedingRank: int(rec.Int("seeding_rank")),
		Points:      int(rec.Int("points")),
		Status:      models.ParticipantStatus(rec.String("status")),
		CreatedAt:   timePtr(rec, "created_at"),
	}
}

func (r *supabasePhaseParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.PhaseParticipant) error {
	res, err := r.getExecutor(exec).Insert(ctx, phaseParticipantsTable, supabase.Record{
		"phase_id":     p.PhaseID,
		"team_id":      nullable(p.TeamID),
		"user_id":      nullable(p.UserID),
		"seeding_rank": p.SeedingRank,
		"points":       p.Points,
		"status":       string(p.Status),
	})
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrPhaseParticipantConflict
		case isForeignKeyViolation(err):
			return ErrPhaseParticipantInvalid
		}
		return fmt.Errorf("failed to add participant to phase %d: %w", p.PhaseID, err)
	}
	if rec := res.Record(); rec != nil {
		p.ID = int(rec.Int("id"))
		p.CreatedAt = timePtr(rec, "created_at")
	}
	return nil
}

func (r *supabasePhaseParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.PhaseParticipant, error) {
	rows, err := r.getExecutor(exec).Select(ctx, supabase.Query{
		Table: phaseParticipantsTable,
		Where: supabase.Filter{supabase.Where("id", id)},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get phase participant %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrPhaseParticipantNotFound
	}
	p := participantFromRecord(rows[0])
	return &p, nil
}

func (r *supabasePhaseParticipantRepository) ListByPhase(ctx context.Context, exec SQLExecutor, phaseID int, status *models.ParticipantStatus) ([]models.PhaseParticipant, error) {
	where := supabase.Filter{supabase.Where("phase_id", phaseID)}
	if status != nil {
		where = append(where, supabase.Where("status", string(*status)))
	}
	rows, err := r.getExecutor(exec).Select(ctx, supabase.Query{
		Table: phaseParticipantsTable,
		Where: where,
		Order: supabase.ParseOrder("seeding_rank.asc,id.asc"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of phase %d: %w", phaseID, err)
	}
	out := make([]models.PhaseParticipant, 0, len(rows))
	for _, rec := range rows {
		out = append(out, participantFromRecord(rec))
	}
	return out, nil
}

func (r *supabasePhaseParticipantRepository) Qualify(ctx context.Context, exec SQLExecutor, id int) error {
	n, err := r.getExecutor(exec).Update(ctx, phaseParticipantsTable,
		supabase.Record{"status": string(models.ParticipantStatusQualified)},
		supabase.Filter{
			supabase.Where("id", id),
			supabase.Where("status", string(models.ParticipantStatusActive)),
		})
	if err != nil {
		return fmt.Errorf("failed to qualify participant %d: %w", id, err)
	}
	return checkAffectedRows(n, ErrPhaseParticipantNotFound)
}

func (r *supabasePhaseParticipantRepository) EliminateRemaining(ctx context.Context, exec SQLExecutor, phaseID int) (int64, error) {
	n, err := r.getExecutor(exec).Update(ctx, phaseParticipantsTable,
		supabase.Record{"status": string(models.ParticipantStatusEliminated)},
		supabase.Filter{
			supabase.Where("phase_id", phaseID),
			supabase.Where("status", string(models.ParticipantStatusActive)),
		})
	if err != nil {
		return 0, fmt.Errorf("failed to eliminate participants of phase %d: %w", phaseID, err)
	}
	return n, nil
}

// AddPoints runs increment_participant_points and returns the new total.
func (r *supabasePhaseParticipantRepository) AddPoints(ctx context.Context, id, points int) (int, error) {
	out, err := r.caller.RPC(ctx, "increment_participant_points", supabase.Record{
		"p_participant_id": id,
		"p_points":         points,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add points to participant %d: %w", id, err)
	}
	rows := rowsToRecords(out)
	if len(rows) > 0 {
		return int(rows[0].Int("points")), nil
	}
	switch v := out.(type) {
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	return 0, nil
}

func (r *supabasePhaseParticipantRepository) Count(ctx context.Context, where supabase.Filter) (int, error) {
	return countRows(ctx, r.db, phaseParticipantsTable, where)
}
