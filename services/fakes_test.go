package services

import (
	"context"
	"errors"
	"io"
	"slices"
	"sort"
	"sync"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/repositories"
	"github.com/Dosada05/weekly-finals/storage"
	"github.com/Dosada05/weekly-finals/supabase"
)

// store is an in-memory backend shared by the fake repositories.
type store struct {
	mu           sync.Mutex
	nextID       int
	tournaments  map[int]*models.Tournament
	phases       map[int]*models.Phase
	participants map[int]*models.PhaseParticipant
	matches      map[int]*models.FinalsMatch
	uploads      map[int]*models.MatchUpload
	users        map[int]*models.User

	registrations []models.Registration
	standings     map[int][]models.PhaseStanding
	leaderboard   []models.PhaseStanding

	failPhaseCreateAt int
	phaseCreates      int
	deletedPhaseNums  []int
}

func newStore() *store {
	return &store{
		nextID:       1,
		tournaments:  map[int]*models.Tournament{},
		phases:       map[int]*models.Phase{},
		participants: map[int]*models.PhaseParticipant{},
		matches:      map[int]*models.FinalsMatch{},
		uploads:      map[int]*models.MatchUpload{},
		users:        map[int]*models.User{},
		standings:    map[int][]models.PhaseStanding{},
	}
}

func (s *store) id() int {
	id := s.nextID
	s.nextID++
	return id
}

var errBackend = errors.New("backend unavailable")

type fakeTournaments struct{ *store }

func (f fakeTournaments) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (f fakeTournaments) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (f fakeTournaments) Count(_ context.Context, _ supabase.Filter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tournaments), nil
}

type fakePhases struct{ *store }

func (f fakePhases) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phaseCreates++
	if f.failPhaseCreateAt > 0 && f.phaseCreates == f.failPhaseCreateAt {
		return errBackend
	}
	for _, existing := range f.phases {
		if existing.TournamentID == p.TournamentID && existing.PhaseNumber == p.PhaseNumber {
			return repositories.ErrPhaseNumberConflict
		}
	}
	p.ID = f.id()
	cp := *p
	f.phases[p.ID] = &cp
	return nil
}

func (f fakePhases) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Phase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.phases[id]
	if !ok {
		return nil, repositories.ErrPhaseNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakePhases) GetByNumber(_ context.Context, _ repositories.SQLExecutor, tournamentID, number int) (*models.Phase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.phases {
		if p.TournamentID == tournamentID && p.PhaseNumber == number {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPhaseNotFound
}

func (f fakePhases) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Phase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Phase
	for _, p := range f.phases {
		if p.TournamentID == tournamentID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhaseNumber < out[j].PhaseNumber })
	return out, nil
}

func (f fakePhases) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.PhaseStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.phases[id]
	if !ok || p.Status != from {
		return repositories.ErrPhaseStatusConflict
	}
	p.Status = to
	return nil
}

func (f fakePhases) DeleteByNumbers(_ context.Context, _ repositories.SQLExecutor, tournamentID int, numbers []int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, p := range f.phases {
		if p.TournamentID == tournamentID && slices.Contains(numbers, p.PhaseNumber) {
			delete(f.phases, id)
			n++
		}
	}
	f.deletedPhaseNums = append(f.deletedPhaseNums, numbers...)
	return n, nil
}

func (f fakePhases) Count(_ context.Context, where supabase.Filter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.phases {
		if len(where) == 0 || p.Status == models.PhaseStatus(where[0].Value.(string)) {
			n++
		}
	}
	return n, nil
}

type fakeParticipants struct{ *store }

func (f fakeParticipants) Create(_ context.Context, _ repositories.SQLExecutor, p *models.PhaseParticipant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id()
	cp := *p
	f.participants[p.ID] = &cp
	return nil
}

func (f fakeParticipants) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.PhaseParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return nil, repositories.ErrPhaseParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakeParticipants) ListByPhase(_ context.Context, _ repositories.SQLExecutor, phaseID int, status *models.ParticipantStatus) ([]models.PhaseParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PhaseParticipant
	for _, p := range f.participants {
		if p.PhaseID == phaseID && (status == nil || p.Status == *status) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeedingRank != out[j].SeedingRank {
			return out[i].SeedingRank < out[j].SeedingRank
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f fakeParticipants) Qualify(_ context.Context, _ repositories.SQLExecutor, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok || p.Status != models.ParticipantStatusActive {
		return repositories.ErrPhaseParticipantNotFound
	}
	p.Status = models.ParticipantStatusQualified
	return nil
}

func (f fakeParticipants) EliminateRemaining(_ context.Context, _ repositories.SQLExecutor, phaseID int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.participants {
		if p.PhaseID == phaseID && p.Status == models.ParticipantStatusActive {
			p.Status = models.ParticipantStatusEliminated
			n++
		}
	}
	return n, nil
}

func (f fakeParticipants) AddPoints(_ context.Context, id, points int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return 0, repositories.ErrPhaseParticipantNotFound
	}
	p.Points += points
	return p.Points, nil
}

func (f fakeParticipants) Count(_ context.Context, where supabase.Filter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.participants {
		if len(where) == 0 || p.Status == models.ParticipantStatus(where[0].Value.(string)) {
			n++
		}
	}
	return n, nil
}

type fakeStandings struct{ *store }

func (f fakeStandings) ListByPhase(_ context.Context, phaseID int) ([]models.PhaseStanding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.PhaseStanding(nil), f.standings[phaseID]...), nil
}

func (f fakeStandings) Leaderboard(_ context.Context, _, limit int) ([]models.PhaseStanding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.leaderboard
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]models.PhaseStanding{}, out...), nil
}

type fakeRegistrations struct{ *store }

func (f fakeRegistrations) ListApproved(_ context.Context, _ repositories.SQLExecutor, tournamentID, limit int) ([]models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Registration
	for _, r := range f.registrations {
		if r.TournamentID == tournamentID && r.Status == models.RegistrationApproved {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeFinals struct{ *store }

func (f fakeFinals) Create(_ context.Context, _ repositories.SQLExecutor, m *models.FinalsMatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = f.id()
	cp := *m
	f.matches[m.ID] = &cp
	return nil
}

func (f fakeFinals) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.FinalsMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (f fakeFinals) ListByPhase(_ context.Context, _ repositories.SQLExecutor, phaseID int) ([]models.FinalsMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.FinalsMatch
	for _, m := range f.matches {
		if m.PhaseID == phaseID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeUploads struct {
	*store
	failCreate bool
}

func (f *fakeUploads) Create(_ context.Context, u *models.MatchUpload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errBackend
	}
	u.ID = f.id()
	cp := *u
	f.uploads[u.ID] = &cp
	return nil
}

func (f *fakeUploads) GetByID(_ context.Context, id int) (*models.MatchUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.uploads[id]
	if !ok {
		return nil, repositories.ErrUploadNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUploads) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.uploads[id]; !ok {
		return repositories.ErrUploadNotFound
	}
	delete(f.uploads, id)
	return nil
}

type fakeUsers struct{ *store }

func (f fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	u.ID = f.id()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f fakeUsers) Count(_ context.Context, _ supabase.Filter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

type publishedEvent struct {
	TournamentID int
	Type         string
	Payload      any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishTournamentEvent(tournamentID int, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{tournamentID, eventType, payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string][]byte{}}
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, r io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = data
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.test/" + key
}
