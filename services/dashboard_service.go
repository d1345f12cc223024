package services

import (
	"context"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/repositories"
	"github.com/Dosada05/weekly-finals/supabase"
	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

type dashboardService struct {
	userRepo        repositories.Counter
	tournamentRepo  repositories.Counter
	phaseRepo       repositories.Counter
	participantRepo repositories.Counter
}

func NewDashboardService(
	userRepo repositories.Counter,
	tournamentRepo repositories.Counter,
	phaseRepo repositories.Counter,
	participantRepo repositories.Counter,
) DashboardService {
	return &dashboardService{
		userRepo:        userRepo,
		tournamentRepo:  tournamentRepo,
		phaseRepo:       phaseRepo,
		participantRepo: participantRepo,
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats

	counts := []struct {
		repo  repositories.Counter
		where supabase.Filter
		dst   *int
	}{
		{s.userRepo, nil, &stats.UsersTotal},
		{s.tournamentRepo, nil, &stats.TournamentsTotal},
		{s.tournamentRepo, supabase.Filter{supabase.Where("status", string(models.StatusActive))}, &stats.ActiveTournaments},
		{s.phaseRepo, supabase.Filter{supabase.Where("status", string(models.PhaseStatusActive))}, &stats.ActivePhases},
		{s.participantRepo, supabase.Filter{supabase.Where("status", string(models.ParticipantStatusActive))}, &stats.ActiveParticipants},
		{s.participantRepo, supabase.Filter{supabase.Where("status", string(models.ParticipantStatusEliminated))}, &stats.EliminatedParticipants},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			n, err := c.repo.Count(gctx, c.where)
			if err != nil {
				return handleRepositoryError(err, "failed to count dashboard totals")
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}
