package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/supabase"
)

const (
	finalsMatchesTable = "finals_matches"
	matchUploadsTable  = "match_uploads"
)

var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrUploadNotFound = errors.New("match upload not found")
)

type FinalsMatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.FinalsMatch) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.FinalsMatch, error)
	ListByPhase(ctx context.Context, exec SQLExecutor, phaseID int) ([]models.FinalsMatch, error)
}

type MatchUploadRepository interface {
	Create(ctx context.Context, u *models.MatchUpload) error
	GetByID(ctx context.Context, id int) (*models.MatchUpload, error)
	Delete(ctx context.Context, id int) error
}

type supabaseFinalsMatchRepository struct {
	db SQLExecutor
}

func NewFinalsMatchRepository(db SQLExecutor) FinalsMatchRepository {
	return &supabaseFinalsMatchRepository{db: db}
}

func (r *supabaseFinalsMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func stringPtr(rec supabase.Record, key string) *string {
	if rec.IsNull(key) {
		return nil
	}
	s := rec.String(key)
	return &s
}

func finalsMatchFromRecord(rec supabase.Record) models.FinalsMatch {
	return models.FinalsMatch{
		ID:              int(rec.Int("id")),
		PhaseID:         int(rec.Int("phase_id")),
		UID:             rec.String("uid"),
		Round:           int(rec.Int("round")),
		OrderInRound:    int(rec.Int("order_in_round")),
		Participant1ID:  rec.IntPtr("participant1_id"),
		Participant2ID:  rec.IntPtr("participant2_id"),
		SourceMatch1UID: stringPtr(rec, "source_match1_uid"),
		SourceMatch2UID: stringPtr(rec, "source_match2_uid"),
		IsBye:           rec.Bool("is_bye"),
		WinnerID:        rec.IntPtr("winner_id"),
		Status:          models.MatchStatus(rec.String("status")),
		CreatedAt:       timePtr(rec, "created_at"),
	}
}

func (r *supabaseFinalsMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.FinalsMatch) error {
	res, err := r.getExecutor(exec).Insert(ctx, finalsMatchesTable, supabase.Record{
		"phase_id":          m.PhaseID,
		"uid":               m.UID,
		"round":             m.Round,
		"order_in_round":    m.OrderInRound,
		"participant1_id":   nullable(m.Participant1ID),
		"participant2_id":   nullable(m.Participant2ID),
		"source_match1_uid": nullable(m.SourceMatch1UID),
		"source_match2_uid": nullable(m.SourceMatch2UID),
		"is_bye":            m.IsBye,
		"winner_id":         nullable(m.WinnerID),
		"status":            string(m.Status),
	})
	if err != nil {
		return fmt.Errorf("failed to create finals match %s: %w", m.UID, err)
	}
	if rec := res.Record(); rec != nil {
		m.ID = int(rec.Int("id"))
		m.CreatedAt = timePtr(rec, "created_at")
	}
	return nil
}

func (r *supabaseFinalsMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.FinalsMatch, error) {
	rows, err := r.getExecutor(exec).Select(ctx, supabase.Query{
		Table: finalsMatchesTable,
		Where: supabase.Filter{supabase.Where("id", id)},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get finals match %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrMatchNotFound
	}
	m := finalsMatchFromRecord(rows[0])
	return &m, nil
}

func (r *supabaseFinalsMatchRepository) ListByPhase(ctx context.Context, exec SQLExecutor, phaseID int) ([]models.FinalsMatch, error) {
	rows, err := r.getExecutor(exec).Select(ctx, supabase.Query{
		Table: finalsMatchesTable,
		Where: supabase.Filter{supabase.Where("phase_id", phaseID)},
		Order: supabase.ParseOrder("round.asc,order_in_round.asc"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list finals matches of phase %d: %w", phaseID, err)
	}
	out := make([]models.FinalsMatch, 0, len(rows))
	for _, rec := range rows {
		out = append(out, finalsMatchFromRecord(rec))
	}
	return out, nil
}

type supabaseMatchUploadRepository struct {
	db SQLExecutor
}

func NewMatchUploadRepository(db SQLExecutor) MatchUploadRepository {
	return &supabaseMatchUploadRepository{db: db}
}

func uploadFromRecord(rec supabase.Record) *models.MatchUpload {
	return &models.MatchUpload{
		ID:          int(rec.Int("id")),
		MatchID:     int(rec.Int("match_id")),
		UserID:      int(rec.Int("user_id")),
		ObjectKey:   rec.String("object_key"),
		FileName:    rec.String("file_name"),
		ContentType: rec.String("content_type"),
		URL:         rec.String("url"),
		CreatedAt:   rec.Time("created_at"),
	}
}

func (r *supabaseMatchUploadRepository) Create(ctx context.Context, u *models.MatchUpload) error {
	res, err := r.db.Insert(ctx, matchUploadsTable, supabase.Record{
		"match_id":     u.MatchID,
		"user_id":      u.UserID,
		"object_key":   u.ObjectKey,
		"file_name":    u.FileName,
		"content_type": u.ContentType,
		"url":          u.URL,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to record upload for match %d: %w", u.MatchID, err)
	}
	if rec := res.Record(); rec != nil {
		u.ID = int(rec.Int("id"))
		u.CreatedAt = rec.Time("created_at")
	}
	return nil
}

func (r *supabaseMatchUploadRepository) GetByID(ctx context.Context, id int) (*models.MatchUpload, error) {
	rows, err := r.db.Select(ctx, supabase.Query{
		Table: matchUploadsTable,
		Where: supabase.Filter{supabase.Where("id", id)},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get upload %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrUploadNotFound
	}
	return uploadFromRecord(rows[0]), nil
}

func (r *supabaseMatchUploadRepository) Delete(ctx context.Context, id int) error {
	n, err := r.db.Delete(ctx, matchUploadsTable, supabase.Filter{supabase.Where("id", id)})
	if err != nil {
		return fmt.Errorf("failed to delete upload %d: %w", id, err)
	}
	return checkAffectedRows(n, ErrUploadNotFound)
}
