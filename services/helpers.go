package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/weekly-finals/repositories"
	"github.com/Dosada05/weekly-finals/supabase"
)

// Transactor runs work atomically on backends that support it.
// *supabase.Client implements it.
type Transactor interface {
	SupportsTransactions() bool
	Transaction(ctx context.Context, work func(tx *supabase.Tx) error) error
}

// EventPublisher pushes tournament events to live subscribers.
// *brackets.Hub implements it.
type EventPublisher interface {
	PublishTournamentEvent(tournamentID int, eventType string, payload any)
}

// repoErrors maps repository sentinels onto service sentinels.
var repoErrors = map[error]error{
	repositories.ErrTournamentNotFound:       ErrTournamentNotFound,
	repositories.ErrPhaseNotFound:            ErrPhaseNotFound,
	repositories.ErrPhaseStatusConflict:      ErrInvalidPhaseTransition,
	repositories.ErrPhaseNumberConflict:      ErrPhasesAlreadyExist,
	repositories.ErrPhaseParticipantNotFound: ErrPhaseParticipantNotFound,
	repositories.ErrPhaseParticipantConflict: ErrParticipantInPhase,
	repositories.ErrUserNotFound:             ErrUserNotFound,
	repositories.ErrUserEmailConflict:        ErrUserEmailConflict,
	repositories.ErrMatchNotFound:            ErrMatchNotFound,
	repositories.ErrUploadNotFound:           ErrUploadNotFound,
}

// handleRepositoryError replaces a known repository error by its service
// counterpart and wraps everything else with op.
func handleRepositoryError(err error, op string) error {
	if err == nil {
		return nil
	}
	for repoErr, svcErr := range repoErrors {
		if errors.Is(err, repoErr) {
			return svcErr
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, err)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
