package services

import (
	"context"
	"testing"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/supabase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCounter struct{}

func (failingCounter) Count(context.Context, supabase.Filter) (int, error) { return 0, errBackend }

func TestDashboardStats(t *testing.T) {
	st := newStore()
	st.users[1] = &models.User{ID: 1}
	st.users[2] = &models.User{ID: 2}
	st.tournaments[1] = &models.Tournament{ID: 1}
	st.phases[1] = &models.Phase{ID: 1, Status: models.PhaseStatusActive}
	st.phases[2] = &models.Phase{ID: 2, Status: models.PhaseStatusUpcoming}
	st.participants[1] = &models.PhaseParticipant{ID: 1, Status: models.ParticipantStatusActive}
	st.participants[2] = &models.PhaseParticipant{ID: 2, Status: models.ParticipantStatusEliminated}
	st.participants[3] = &models.PhaseParticipant{ID: 3, Status: models.ParticipantStatusEliminated}

	svc := NewDashboardService(fakeUsers{st}, fakeTournaments{st}, fakePhases{st}, fakeParticipants{st})
	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.UsersTotal)
	assert.Equal(t, 1, stats.TournamentsTotal)
	assert.Equal(t, 1, stats.ActivePhases)
	assert.Equal(t, 1, stats.ActiveParticipants)
	assert.Equal(t, 2, stats.EliminatedParticipants)
}

func TestDashboardStats_PropagatesErrors(t *testing.T) {
	st := newStore()
	svc := NewDashboardService(fakeUsers{st}, failingCounter{}, fakePhases{st}, fakeParticipants{st})

	_, err := svc.GetStats(context.Background())
	assert.ErrorIs(t, err, errBackend)
}
