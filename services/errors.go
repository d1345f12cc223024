package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed    = errors.New("validation failed")
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// Ошибки фаз турнира
	ErrPhasesAlreadyExist       = errors.New("tournament already has phases")
	ErrInvalidPhaseTransition   = errors.New("invalid phase status transition")
	ErrPhaseAlreadyInitialized  = errors.New("phase already has participants")
	ErrNotFinalsPhase           = errors.New("phase is not the finals phase")
	ErrBracketAlreadyExists     = errors.New("finals bracket already exists for this phase")
	ErrPhaseTournamentMismatch  = errors.New("phases belong to different tournaments")
	ErrParticipantNotActive     = errors.New("participant is no longer active in this phase")
	ErrPhaseRequiresPredecessor = errors.New("previous phase must be completed first")
	ErrParticipantInPhase       = errors.New("participant is already in this phase")

	// Ошибки конфликтов
	ErrUserEmailConflict = errors.New("email address is already in use")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	ErrUserNotFound             = errors.New("user not found")
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrPhaseNotFound            = errors.New("phase not found")
	ErrPhaseParticipantNotFound = errors.New("phase participant not found")
	ErrMatchNotFound            = errors.New("match not found")
	ErrUploadNotFound           = errors.New("match upload not found")

	// Внешние зависимости
	ErrStorageUnavailable = errors.New("file storage is not configured")
)
