package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/weekly-finals/brackets"
	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/repositories"
	"github.com/Dosada05/weekly-finals/supabase"
	"golang.org/x/sync/errgroup"
)

const overviewLeaderboardSize = 10

// PhaseCompletion describes what CompletePhase changed.
type PhaseCompletion struct {
	Phase     models.Phase  `json:"phase"`
	Advanced  int           `json:"advanced"`
	NextPhase *models.Phase `json:"next_phase,omitempty"`
}

type PhaseService interface {
	// CreatePhases plans and stores the weekly phases of a tournament. A nil
	// config uses the settings stored on the tournament.
	CreatePhases(ctx context.Context, tournamentID int, cfg *models.WeeklyFinalsConfig) ([]models.Phase, error)
	ListPhases(ctx context.Context, tournamentID int) ([]models.Phase, error)
	InitializePhase(ctx context.Context, phaseID int) (int, error)
	AdvanceParticipants(ctx context.Context, fromPhaseID int, toPhaseID *int) (int, error)
	StartPhase(ctx context.Context, phaseID int) (*models.Phase, error)
	CompletePhase(ctx context.Context, phaseID int) (*PhaseCompletion, error)
	GetOverview(ctx context.Context, tournamentID int) (*models.TournamentOverview, error)
	GenerateFinalsBracket(ctx context.Context, phaseID int) ([]models.FinalsMatch, error)
	AwardPoints(ctx context.Context, participantID, points int) (int, error)
}

type PhaseServiceDeps struct {
	Tournaments   repositories.TournamentRepository
	Phases        repositories.PhaseRepository
	Participants  repositories.PhaseParticipantRepository
	Standings     repositories.StandingRepository
	Registrations repositories.RegistrationRepository
	FinalsMatches repositories.FinalsMatchRepository
	Transactor    Transactor
	Events        EventPublisher
	Generator     brackets.BracketGenerator
	Logger        *slog.Logger
	Now           func() time.Time
}

type phaseService struct {
	tournamentRepo   repositories.TournamentRepository
	phaseRepo        repositories.PhaseRepository
	participantRepo  repositories.PhaseParticipantRepository
	standingRepo     repositories.StandingRepository
	registrationRepo repositories.RegistrationRepository
	finalsRepo       repositories.FinalsMatchRepository
	tx               Transactor
	events           EventPublisher
	generator        brackets.BracketGenerator
	logger           *slog.Logger
	now              func() time.Time
}

func NewPhaseService(deps PhaseServiceDeps) PhaseService {
	s := &phaseService{
		tournamentRepo:   deps.Tournaments,
		phaseRepo:        deps.Phases,
		participantRepo:  deps.Participants,
		standingRepo:     deps.Standings,
		registrationRepo: deps.Registrations,
		finalsRepo:       deps.FinalsMatches,
		tx:               deps.Transactor,
		events:           deps.Events,
		generator:        deps.Generator,
		logger:           deps.Logger,
		now:              deps.Now,
	}
	if s.logger == nil {
		s.logger = discardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generator == nil {
		s.generator = brackets.NewSeededEliminationGenerator()
	}
	return s
}

// inTransaction runs work in one transaction when the backend supports it.
// Otherwise work runs with a nil executor, i.e. statement by statement, and
// atomic reports false.
func (s *phaseService) inTransaction(ctx context.Context, work func(exec repositories.SQLExecutor) error) (atomic bool, err error) {
	if s.tx == nil || !s.tx.SupportsTransactions() {
		return false, work(nil)
	}
	err = s.tx.Transaction(ctx, func(tx *supabase.Tx) error {
		return work(tx)
	})
	return true, err
}

func (s *phaseService) publish(tournamentID int, event string, payload any) {
	if s.events != nil {
		s.events.PublishTournamentEvent(tournamentID, event, payload)
	}
}

func (s *phaseService) getPhase(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Phase, error) {
	phase, err := s.phaseRepo.GetByID(ctx, exec, id)
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("failed to load phase %d", id))
	}
	return phase, nil
}

func (s *phaseService) CreatePhases(ctx context.Context, tournamentID int, cfg *models.WeeklyFinalsConfig) ([]models.Phase, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "failed to load tournament")
	}
	config := tournament.Config()
	if cfg != nil {
		config = *cfg
	}

	phases, err := brackets.PlanPhases(tournamentID, config, s.now())
	if err != nil {
		return nil, validationError(err)
	}

	existing, err := s.phaseRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "failed to check existing phases")
	}
	if len(existing) > 0 {
		return nil, ErrPhasesAlreadyExist
	}

	var created []int
	atomic, err := s.inTransaction(ctx, func(exec repositories.SQLExecutor) error {
		created = created[:0]
		for i := range phases {
			if err := s.phaseRepo.Create(ctx, exec, &phases[i]); err != nil {
				return err
			}
			created = append(created, phases[i].PhaseNumber)
		}
		return nil
	})
	if err != nil {
		if !atomic {
			s.removePartialPhases(ctx, tournamentID, created)
		}
		return nil, handleRepositoryError(err, fmt.Sprintf("failed to create phases for tournament %d", tournamentID))
	}

	s.logger.Info("tournament phases created",
		slog.Int("tournament_id", tournamentID),
		slog.Int("phases", len(phases)),
		slog.Bool("atomic", atomic))
	s.publish(tournamentID, brackets.EventPhasesCreated, phases)
	return phases, nil
}

// removePartialPhases deletes phases stored before a failure on the
// non-transactional path. Phases are matched by number: inserts answered
// without a body leave the ids unknown.
func (s *phaseService) removePartialPhases(ctx context.Context, tournamentID int, numbers []int) {
	if len(numbers) == 0 {
		return
	}
	if _, err := s.phaseRepo.DeleteByNumbers(context.WithoutCancel(ctx), nil, tournamentID, numbers); err != nil {
		s.logger.Error("failed to remove partially created phases",
			slog.Int("tournament_id", tournamentID),
			slog.Any("phase_numbers", numbers),
			slog.Any("error", err))
		return
	}
	s.logger.Warn("partially created phases removed",
		slog.Int("tournament_id", tournamentID), slog.Any("phase_numbers", numbers))
}

func (s *phaseService) ListPhases(ctx context.Context, tournamentID int) ([]models.Phase, error) {
	phases, err := s.phaseRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "failed to list phases")
	}
	return phases, nil
}

// InitializePhase seeds the first phase from approved registrations, in
// registration order and capped at the phase size, then activates it.
func (s *phaseService) InitializePhase(ctx context.Context, phaseID int) (int, error) {
	phase, err := s.getPhase(ctx, nil, phaseID)
	if err != nil {
		return 0, err
	}
	if phase.PhaseNumber != 1 {
		return 0, validationError(fmt.Errorf("phase %d is seeded by advancement, not registrations", phase.PhaseNumber))
	}
	if !phase.Status.CanTransitionTo(models.PhaseStatusActive) {
		return 0, ErrInvalidPhaseTransition
	}

	existing, err := s.participantRepo.ListByPhase(ctx, nil, phase.ID, nil)
	if err != nil {
		return 0, handleRepositoryError(err, "failed to check phase participants")
	}
	if len(existing) > 0 {
		return 0, ErrPhaseAlreadyInitialized
	}

	registrations, err := s.registrationRepo.ListApproved(ctx, nil, phase.TournamentID, phase.MaxParticipants)
	if err != nil {
		return 0, handleRepositoryError(err, "failed to load registrations")
	}
	if len(registrations) == 0 {
		return 0, validationError(errors.New("tournament has no approved registrations"))
	}

	_, err = s.inTransaction(ctx, func(exec repositories.SQLExecutor) error {
		for i, reg := range registrations {
			p := &models.PhaseParticipant{
				PhaseID:     phase.ID,
				TeamID:      reg.TeamID,
				UserID:      reg.UserID,
				SeedingRank: i + 1,
				Status:      models.ParticipantStatusActive,
			}
			if err := s.participantRepo.Create(ctx, exec, p); err != nil {
				return err
			}
		}
		if err := s.phaseRepo.UpdateStatus(ctx, exec, phase.ID, models.PhaseStatusUpcoming, models.PhaseStatusActive); err != nil {
			return err
		}
		return s.tournamentRepo.UpdateStatus(ctx, exec, phase.TournamentID, models.StatusActive)
	})
	if err != nil {
		return 0, handleRepositoryError(err, fmt.Sprintf("failed to initialize phase %d", phase.ID))
	}

	phase.Status = models.PhaseStatusActive
	s.logger.Info("phase initialized", slog.Int("phase_id", phase.ID), slog.Int("participants", len(registrations)))
	s.publish(phase.TournamentID, brackets.EventPhaseStarted, phase)
	return len(registrations), nil
}

// AdvanceParticipants qualifies the top advancement_slots of the phase
// ranking, copies them into the destination phase when one is given and
// eliminates everyone still active.
func (s *phaseService) AdvanceParticipants(ctx context.Context, fromPhaseID int, toPhaseID *int) (int, error) {
	from, err := s.getPhase(ctx, nil, fromPhaseID)
	if err != nil {
		return 0, err
	}
	if from.Status != models.PhaseStatusActive {
		return 0, ErrInvalidPhaseTransition
	}
	var to *models.Phase
	if toPhaseID != nil {
		if to, err = s.getPhase(ctx, nil, *toPhaseID); err != nil {
			return 0, err
		}
		if to.TournamentID != from.TournamentID {
			return 0, ErrPhaseTournamentMismatch
		}
	}

	standings, err := s.standingRepo.ListByPhase(ctx, from.ID)
	if err != nil {
		return 0, handleRepositoryError(err, "failed to load standings")
	}

	var advanced int
	_, err = s.inTransaction(ctx, func(exec repositories.SQLExecutor) error {
		advanced, err = s.advance(ctx, exec, from, to, standings)
		return err
	})
	if err != nil {
		return 0, handleRepositoryError(err, fmt.Sprintf("failed to advance participants of phase %d", from.ID))
	}
	return advanced, nil
}

// advance applies the outcome of a phase. Standings are used in the order the
// backend ranked them; qualified participants keep their seeding rank and
// points in the next phase.
func (s *phaseService) advance(ctx context.Context, exec repositories.SQLExecutor, from, to *models.Phase, standings []models.PhaseStanding) (int, error) {
	top := standings
	if len(top) > from.AdvancementSlots {
		top = top[:from.AdvancementSlots]
	}

	for _, st := range top {
		if err := s.participantRepo.Qualify(ctx, exec, st.ParticipantID); err != nil {
			if errors.Is(err, repositories.ErrPhaseParticipantNotFound) {
				return 0, fmt.Errorf("participant %d: %w", st.ParticipantID, ErrParticipantNotActive)
			}
			return 0, err
		}
		if to == nil {
			continue
		}
		next := &models.PhaseParticipant{
			PhaseID:     to.ID,
			TeamID:      st.TeamID,
			UserID:      st.UserID,
			SeedingRank: st.SeedingRank,
			Points:      st.Points,
			Status:      models.ParticipantStatusActive,
		}
		if err := s.participantRepo.Create(ctx, exec, next); err != nil {
			return 0, err
		}
	}

	eliminated, err := s.participantRepo.EliminateRemaining(ctx, exec, from.ID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("phase participants advanced",
		slog.Int("phase_id", from.ID),
		slog.Int("qualified", len(top)),
		slog.Int64("eliminated", eliminated))
	return len(top), nil
}

func (s *phaseService) StartPhase(ctx context.Context, phaseID int) (*models.Phase, error) {
	phase, err := s.getPhase(ctx, nil, phaseID)
	if err != nil {
		return nil, err
	}
	if !phase.Status.CanTransitionTo(models.PhaseStatusActive) {
		return nil, ErrInvalidPhaseTransition
	}
	if phase.PhaseNumber > 1 {
		prev, err := s.phaseRepo.GetByNumber(ctx, nil, phase.TournamentID, phase.PhaseNumber-1)
		if err != nil && !errors.Is(err, repositories.ErrPhaseNotFound) {
			return nil, handleRepositoryError(err, "failed to load previous phase")
		}
		if prev != nil && prev.Status != models.PhaseStatusCompleted {
			return nil, ErrPhaseRequiresPredecessor
		}
	}

	if err := s.phaseRepo.UpdateStatus(ctx, nil, phase.ID, models.PhaseStatusUpcoming, models.PhaseStatusActive); err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("failed to start phase %d", phase.ID))
	}
	phase.Status = models.PhaseStatusActive
	s.publish(phase.TournamentID, brackets.EventPhaseStarted, phase)
	return phase, nil
}

// CompletePhase advances the phase's participants, closes it and activates
// the following phase, as one unit of work.
func (s *phaseService) CompletePhase(ctx context.Context, phaseID int) (*PhaseCompletion, error) {
	phase, err := s.getPhase(ctx, nil, phaseID)
	if err != nil {
		return nil, err
	}
	if !phase.Status.CanTransitionTo(models.PhaseStatusCompleted) {
		return nil, ErrInvalidPhaseTransition
	}

	next, err := s.phaseRepo.GetByNumber(ctx, nil, phase.TournamentID, phase.PhaseNumber+1)
	if err != nil {
		if !errors.Is(err, repositories.ErrPhaseNotFound) {
			return nil, handleRepositoryError(err, "failed to load next phase")
		}
		next = nil
	}

	standings, err := s.standingRepo.ListByPhase(ctx, phase.ID)
	if err != nil {
		return nil, handleRepositoryError(err, "failed to load standings")
	}

	result := &PhaseCompletion{}
	_, err = s.inTransaction(ctx, func(exec repositories.SQLExecutor) error {
		advanced, err := s.advance(ctx, exec, phase, next, standings)
		if err != nil {
			return err
		}
		result.Advanced = advanced
		if err := s.phaseRepo.UpdateStatus(ctx, exec, phase.ID, models.PhaseStatusActive, models.PhaseStatusCompleted); err != nil {
			return err
		}
		if next == nil {
			return s.tournamentRepo.UpdateStatus(ctx, exec, phase.TournamentID, models.StatusCompleted)
		}
		if next.Status == models.PhaseStatusUpcoming {
			return s.phaseRepo.UpdateStatus(ctx, exec, next.ID, models.PhaseStatusUpcoming, models.PhaseStatusActive)
		}
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("failed to complete phase %d", phase.ID))
	}

	phase.Status = models.PhaseStatusCompleted
	result.Phase = *phase
	if next != nil {
		next.Status = models.PhaseStatusActive
		result.NextPhase = next
	}
	s.publish(phase.TournamentID, brackets.EventPhaseCompleted, result)
	if next != nil {
		s.publish(phase.TournamentID, brackets.EventPhaseStarted, next)
	}
	return result, nil
}

// GetOverview loads the tournament, its phases and the leaderboard
// concurrently, then the standings of the active phase.
func (s *phaseService) GetOverview(ctx context.Context, tournamentID int) (*models.TournamentOverview, error) {
	overview := &models.TournamentOverview{TournamentID: tournamentID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.tournamentRepo.GetByID(gctx, tournamentID)
		return handleRepositoryError(err, "failed to load tournament")
	})
	g.Go(func() error {
		phases, err := s.phaseRepo.ListByTournament(gctx, nil, tournamentID)
		if err != nil {
			return handleRepositoryError(err, "failed to list phases")
		}
		overview.Phases = phases
		return nil
	})
	g.Go(func() error {
		leaderboard, err := s.standingRepo.Leaderboard(gctx, tournamentID, overviewLeaderboardSize)
		if err != nil {
			return handleRepositoryError(err, "failed to load leaderboard")
		}
		overview.Leaderboard = leaderboard
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range overview.Phases {
		if overview.Phases[i].Status == models.PhaseStatusActive {
			current := overview.Phases[i]
			overview.CurrentPhase = &current
			break
		}
	}
	overview.Standings = []models.PhaseStanding{}
	if overview.CurrentPhase != nil {
		standings, err := s.standingRepo.ListByPhase(ctx, overview.CurrentPhase.ID)
		if err != nil {
			return nil, handleRepositoryError(err, "failed to load standings")
		}
		overview.Standings = standings
	}
	return overview, nil
}

func (s *phaseService) GenerateFinalsBracket(ctx context.Context, phaseID int) ([]models.FinalsMatch, error) {
	phase, err := s.getPhase(ctx, nil, phaseID)
	if err != nil {
		return nil, err
	}
	if !phase.IsFinals() {
		return nil, ErrNotFinalsPhase
	}
	if phase.Status != models.PhaseStatusActive {
		return nil, ErrInvalidPhaseTransition
	}

	existing, err := s.finalsRepo.ListByPhase(ctx, nil, phase.ID)
	if err != nil {
		return nil, handleRepositoryError(err, "failed to check finals matches")
	}
	if len(existing) > 0 {
		return nil, ErrBracketAlreadyExists
	}

	active := models.ParticipantStatusActive
	finalists, err := s.participantRepo.ListByPhase(ctx, nil, phase.ID, &active)
	if err != nil {
		return nil, handleRepositoryError(err, "failed to load finalists")
	}
	params := brackets.GenerateBracketParams{Phase: phase}
	for i := range finalists {
		params.Participants = append(params.Participants, &finalists[i])
	}

	plan, err := s.generator.GenerateBracket(ctx, params)
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughParticipants) {
			return nil, validationError(err)
		}
		return nil, fmt.Errorf("failed to generate finals bracket: %w", err)
	}

	matches := make([]models.FinalsMatch, len(plan))
	for i, bm := range plan {
		matches[i] = models.FinalsMatch{
			PhaseID:         phase.ID,
			UID:             bm.UID,
			Round:           bm.Round,
			OrderInRound:    bm.OrderInRound,
			Participant1ID:  bm.Participant1ID,
			Participant2ID:  bm.Participant2ID,
			SourceMatch1UID: bm.SourceMatch1UID,
			SourceMatch2UID: bm.SourceMatch2UID,
			IsBye:           bm.IsBye,
			Status:          models.StatusScheduled,
		}
		if bm.IsBye {
			matches[i].WinnerID = bm.ByeParticipantID
			matches[i].Status = models.MatchStatusCompleted
		}
	}

	_, err = s.inTransaction(ctx, func(exec repositories.SQLExecutor) error {
		for i := range matches {
			if err := s.finalsRepo.Create(ctx, exec, &matches[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError(err, "failed to store finals bracket")
	}

	s.logger.Info("finals bracket generated", slog.Int("phase_id", phase.ID), slog.Int("matches", len(matches)))
	s.publish(phase.TournamentID, brackets.EventBracketCreated, matches)
	return matches, nil
}

func (s *phaseService) AwardPoints(ctx context.Context, participantID, points int) (int, error) {
	if points == 0 {
		return 0, validationError(errors.New("points must be non-zero"))
	}
	p, err := s.participantRepo.GetByID(ctx, nil, participantID)
	if err != nil {
		return 0, handleRepositoryError(err, "failed to load participant")
	}
	if p.Status != models.ParticipantStatusActive {
		return 0, ErrParticipantNotActive
	}
	total, err := s.participantRepo.AddPoints(ctx, participantID, points)
	if err != nil {
		return 0, handleRepositoryError(err, "failed to award points")
	}
	return total, nil
}
