package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/supabase"
)

const phasesTable = "tournament_phases"

var (
	ErrPhaseNotFound       = errors.New("phase not found")
	ErrPhaseNumberConflict = errors.New("phase number already exists for this tournament")
	ErrPhaseStatusConflict = errors.New("phase status changed concurrently")
)

type PhaseRepository interface {
	Create(ctx context.Context, exec SQLExecutor, phase *models.Phase) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Phase, error)
	GetByNumber(ctx context.Context, exec SQLExecutor, tournamentID, number int) (*models.Phase, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Phase, error)
	// UpdateStatus moves a phase from one status to the next. It fails with
	// ErrPhaseStatusConflict when the phase is no longer in status from.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.PhaseStatus) error
	// DeleteByNumbers removes phases of a tournament by their numbers. It does
	// not need ids, which a backend may not return on insert.
	DeleteByNumbers(ctx context.Context, exec SQLExecutor, tournamentID int, numbers []int) (int64, error)
	Count(ctx context.Context, where supabase.Filter) (int, error)
}

type supabasePhaseRepository struct {
	db SQLExecutor
}

func NewPhaseRepository(db SQLExecutor) PhaseRepository {
	return &supabasePhaseRepository{db: db}
}

func (r *supabasePhaseRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func phaseFromRecord(rec supabase.Record) models.Phase {
	return models.Phase{
		ID:               int(rec.Int("id")),
		TournamentID:     int(rec.Int("tournament_id")),
		PhaseNumber:      int(rec.Int("phase_number")),
		Name:             rec.String("name"),
		Type:             models.PhaseType(rec.String("type")),
		StartDate:        rec.Time("start_date"),
		EndDate:          rec.Time("end_date"),
		MaxParticipants:  int(rec.Int("max_participants")),
		AdvancementSlots: int(rec.Int("advancement_slots")),
		EliminationSlots: int(rec.Int("elimination_slots")),
		Status:           models.PhaseStatus(rec.String("status")),
		CreatedAt:        timePtr(rec, "created_at"),
	}
}

func phaseRecord(p *models.Phase) supabase.Record {
	return supabase.Record{
		"tournament_id":     p.TournamentID,
		"phase_number":      p.PhaseNumber,
		"name":              p.Name,
		"type":              string(p.Type),
		"start_date":        p.StartDate.Format(dateLayout),
		"end_date":          p.EndDate.Format(dateLayout),
		"max_participants":  p.MaxParticipants,
		"advancement_slots": p.AdvancementSlots,
		"elimination_slots": p.EliminationSlots,
		"status":            string(p.Status),
	}
}

func (r *supabasePhaseRepository) Create(ctx context.Context, exec SQLExecutor, phase *models.Phase) error {
	res, err := r.getExecutor(exec).Insert(ctx, phasesTable, phaseRecord(phase))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPhaseNumberConflict
		}
		return fmt.Errorf("failed to create phase %d: %w", phase.PhaseNumber, err)
	}
	if rec := res.Record(); rec != nil {
		created := phaseFromRecord(rec)
		phase.ID = created.ID
		phase.CreatedAt = created.CreatedAt
	}
	return nil
}

func (r *supabasePhaseRepository) selectOne(ctx context.Context, exec SQLExecutor, where supabase.Filter) (*models.Phase, error) {
	rows, err := r.getExecutor(exec).Select(ctx, supabase.Query{Table: phasesTable, Where: where, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrPhaseNotFound
	}
	p := phaseFromRecord(rows[0])
	return &p, nil
}

func (r *supabasePhaseRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Phase, error) {
	p, err := r.selectOne(ctx, exec, supabase.Filter{supabase.Where("id", id)})
	if err != nil && !errors.Is(err, ErrPhaseNotFound) {
		return nil, fmt.Errorf("failed to get phase %d: %w", id, err)
	}
	return p, err
}

func (r *supabasePhaseRepository) GetByNumber(ctx context.Context, exec SQLExecutor, tournamentID, number int) (*models.Phase, error) {
	p, err := r.selectOne(ctx, exec, supabase.Filter{
		supabase.Where("tournament_id", tournamentID),
		supabase.Where("phase_number", number),
	})
	if err != nil && !errors.Is(err, ErrPhaseNotFound) {
		return nil, fmt.Errorf("failed to get phase %d of tournament %d: %w", number, tournamentID, err)
	}
	return p, err
}

func (r *supabasePhaseRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Phase, error) {
	rows, err := r.getExecutor(exec).Select(ctx, supabase.Query{
		Table: phasesTable,
		Where: supabase.Filter{supabase.Where("tournament_id", tournamentID)},
		Order: []supabase.Order{{Column: "phase_number", Direction: supabase.Asc}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list phases of tournament %d: %w", tournamentID, err)
	}
	phases := make([]models.Phase, 0, len(rows))
	for _, rec := range rows {
		phases = append(phases, phaseFromRecord(rec))
	}
	return phases, nil
}

func (r *supabasePhaseRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.PhaseStatus) error {
	n, err := r.getExecutor(exec).Update(ctx, phasesTable,
		supabase.Record{"status": string(to)},
		supabase.Filter{supabase.Where("id", id), supabase.Where("status", string(from))})
	if err != nil {
		return fmt.Errorf("failed to update phase %d status: %w", id, err)
	}
	return checkAffectedRows(n, ErrPhaseStatusConflict)
}

func (r *supabasePhaseRepository) DeleteByNumbers(ctx context.Context, exec SQLExecutor, tournamentID int, numbers []int) (int64, error) {
	if len(numbers) == 0 {
		return 0, nil
	}
	n, err := r.getExecutor(exec).Delete(ctx, phasesTable, supabase.Filter{
		supabase.Where("tournament_id", tournamentID),
		supabase.WhereOp("phase_number", "in", numbers),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete phases %v of tournament %d: %w", numbers, tournamentID, err)
	}
	return n, nil
}

func (r *supabasePhaseRepository) Count(ctx context.Context, where supabase.Filter) (int, error) {
	return countRows(ctx, r.db, phasesTable, where)
}
