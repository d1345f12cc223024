package repositories

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/supabase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	name   string
	params supabase.Record
	out    any
	err    error
}

func (f *fakeCaller) RPC(_ context.Context, name string, params supabase.Record) (any, error) {
	f.name, f.params = name, params
	return f.out, f.err
}

func TestPhaseParticipantRepository_CreateSendsNullForMissingTeam(t *testing.T) {
	client, requests := newBackend(t, http.StatusCreated, `[{"id": 12}]`)
	userID := 5
	p := &models.PhaseParticipant{PhaseID: 2, UserID: &userID, SeedingRank: 1, Status: models.ParticipantStatusActive}

	require.NoError(t, NewPhaseParticipantRepository(client, nil).Create(context.Background(), nil, p))
	assert.Equal(t, 12, p.ID)

	req := <-requests
	assert.Contains(t, req.Body, "team_id")
	assert.Nil(t, req.Body["team_id"])
	assert.EqualValues(t, 5, req.Body["user_id"])
}

func TestPhaseParticipantRepository_EliminateRemaining(t *testing.T) {
	client, requests := newBackend(t, http.StatusOK, `[{"id": 1}, {"id": 2}, {"id": 3}]`)

	n, err := NewPhaseParticipantRepository(client, nil).EliminateRemaining(context.Background(), nil, 8)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	req := <-requests
	assert.Equal(t, "eq.8", req.Query.Get("phase_id"))
	assert.Equal(t, "eq.active", req.Query.Get("status"))
	assert.Equal(t, "eliminated", req.Body["status"])
}

func TestPhaseParticipantRepository_ListByPhase(t *testing.T) {
	client, requests := newBackend(t, http.StatusOK, `[{"id": 1, "phase_id": 8, "team_id": 3, "user_id": null, "seeding_rank": 1, "points": 12, "status": "active"}]`)
	status := models.ParticipantStatusActive

	out, err := NewPhaseParticipantRepository(client, nil).ListByPhase(context.Background(), nil, 8, &status)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].TeamID)
	assert.Equal(t, 3, *out[0].TeamID)
	assert.Nil(t, out[0].UserID)
	assert.Equal(t, 12, out[0].Points)

	req := <-requests
	assert.Equal(t, "seeding_rank.asc,id.asc", req.Query.Get("order"))
}

func TestPhaseParticipantRepository_AddPoints(t *testing.T) {
	caller := &fakeCaller{out: []supabase.Record{{"id": int64(4), "points": int64(31)}}}

	total, err := NewPhaseParticipantRepository(nil, caller).AddPoints(context.Background(), 4, 3)
	require.NoError(t, err)
	assert.Equal(t, 31, total)
	assert.Equal(t, "increment_participant_points", caller.name)
	assert.Equal(t, 3, caller.params["p_points"])

	caller.out = int64(40)
	total, err = NewPhaseParticipantRepository(nil, caller).AddPoints(context.Background(), 4, 9)
	require.NoError(t, err)
	assert.Equal(t, 40, total)
}

func TestStandingRepository_KeepsBackendOrder(t *testing.T) {
	caller := &fakeCaller{out: []supabase.Record{
		{"participant_id": int64(9), "points": int64(10), "rank": int64(1)},
		{"participant_id": int64(3), "points": int64(12), "rank": int64(2)},
	}}

	standings, err := NewStandingRepository(caller).ListByPhase(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, 9, standings[0].ParticipantID)
	assert.Equal(t, 3, standings[1].ParticipantID)
	assert.Equal(t, "get_phase_standings", caller.name)
	assert.Equal(t, 6, caller.params["p_phase_id"])
}

func TestStandingRepository_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewStandingRepository(&fakeCaller{err: boom}).Leaderboard(context.Background(), 1, 10)
	assert.ErrorIs(t, err, boom)
}
