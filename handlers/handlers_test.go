package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/weekly-finals/brackets"
	"github.com/Dosada05/weekly-finals/middleware"
	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/services"
	"github.com/Dosada05/weekly-finals/supabase"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPhaseService struct {
	services.PhaseService
	createPhases func(ctx context.Context, tournamentID int, cfg *models.WeeklyFinalsConfig) ([]models.Phase, error)
	advance      func(ctx context.Context, from int, to *int) (int, error)
}

func (s *stubPhaseService) CreatePhases(ctx context.Context, tournamentID int, cfg *models.WeeklyFinalsConfig) ([]models.Phase, error) {
	return s.createPhases(ctx, tournamentID, cfg)
}

func (s *stubPhaseService) AdvanceParticipants(ctx context.Context, from int, to *int) (int, error) {
	return s.advance(ctx, from, to)
}

type stubMatchService struct {
	services.MatchService
	gotIdentity    models.Identity
	gotFilename    string
	gotContentType string
	gotBody        string
}

func (s *stubMatchService) UploadProof(_ context.Context, identity models.Identity, matchID int, filename, contentType string, r io.Reader) (*models.MatchUpload, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.gotIdentity, s.gotFilename, s.gotContentType, s.gotBody = identity, filename, contentType, string(body)
	return &models.MatchUpload{ID: 1, MatchID: matchID, UserID: identity.UserID, FileName: filename, URL: "https://cdn.example.test/x.png"}, nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrPhaseNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", services.ErrTournamentNotFound), http.StatusNotFound},
		{services.ErrPhasesAlreadyExist, http.StatusConflict},
		{services.ErrInvalidPhaseTransition, http.StatusConflict},
		{fmt.Errorf("%w: weeks", services.ErrValidationFailed), http.StatusBadRequest},
		{services.ErrNotFinalsPhase, http.StatusBadRequest},
		{services.ErrUnsupportedFileType, http.StatusUnsupportedMediaType},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrForbiddenOperation, http.StatusForbidden},
		{services.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{&supabase.NetworkError{Op: "select", Timeout: true, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{fmt.Errorf("list: %w", &supabase.NetworkError{Op: "select", Err: errors.New("refused")}), http.StatusBadGateway},
		{&supabase.RemoteRequestError{Op: "select", StatusCode: 503}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, decodeBody(t, rec), "error")
		})
	}
}

func TestPhaseHandler_CreatePhases(t *testing.T) {
	var gotTournament int
	var gotCfg *models.WeeklyFinalsConfig
	svc := &stubPhaseService{createPhases: func(_ context.Context, tournamentID int, cfg *models.WeeklyFinalsConfig) ([]models.Phase, error) {
		gotTournament, gotCfg = tournamentID, cfg
		if tournamentID == 13 {
			return nil, services.ErrPhasesAlreadyExist
		}
		return []models.Phase{{ID: 1, TournamentID: tournamentID, PhaseNumber: 1}}, nil
	}}
	r := chi.NewRouter()
	r.Post("/tournaments/{tournamentID}/phases", NewPhaseHandler(svc).CreatePhases)

	t.Run("empty body uses tournament settings", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tournaments/7/phases", nil))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, 7, gotTournament)
		assert.Nil(t, gotCfg)
		assert.Len(t, decodeBody(t, rec)["phases"], 1)
	})

	t.Run("explicit config", func(t *testing.T) {
		body := `{"total_weeks":4,"initial_participants":100,"finals_participants":16}`
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tournaments/7/phases", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, gotCfg)
		assert.Equal(t, models.WeeklyFinalsConfig{TotalWeeks: 4, InitialParticipants: 100, FinalsParticipants: 16}, *gotCfg)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tournaments/7/phases", strings.NewReader(`{"weeks":4}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tournaments/abc/phases", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("already planned", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tournaments/13/phases", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestPhaseHandler_AdvanceParticipants(t *testing.T) {
	var gotTo *int
	svc := &stubPhaseService{advance: func(_ context.Context, from int, to *int) (int, error) {
		gotTo = to
		return 16, nil
	}}
	r := chi.NewRouter()
	r.Post("/phases/{phaseID}/advance", NewPhaseHandler(svc).AdvanceParticipants)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/phases/3/advance", strings.NewReader(`{"to_phase_id":4}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotTo)
	assert.Equal(t, 4, *gotTo)
	assert.EqualValues(t, 16, decodeBody(t, rec)["advanced"])
}

func TestMatchHandler_UploadProof(t *testing.T) {
	svc := &stubMatchService{}
	r := chi.NewRouter()
	r.Post("/matches/{matchID}/proof", NewMatchHandler(svc).UploadProof)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="final.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	newRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/matches/5/proof", bytes.NewReader(buf.Bytes()))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, newRequest())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	identity := &models.Identity{UserID: 9, Role: models.RolePlayer}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, newRequest().WithContext(middleware.WithIdentity(context.Background(), identity)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 9, svc.gotIdentity.UserID)
	assert.Equal(t, "final.png", svc.gotFilename)
	assert.Equal(t, "image/png", svc.gotContentType)
	assert.Equal(t, "png-bytes", svc.gotBody)
}

func TestWebSocketHandler_ReceivesTournamentEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := brackets.NewHub(slog.New(slog.DiscardHandler))
	go hub.Run(ctx)

	r := chi.NewRouter()
	r.Get("/ws/tournaments/{tournamentID}", NewWebSocketHandler(hub, nil, nil).ServeWs)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tournaments/12"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.RoomSize(brackets.TournamentRoom(12)) == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.PublishTournamentEvent(12, brackets.EventPhaseCompleted, map[string]int{"phase_id": 2})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg brackets.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, brackets.EventPhaseCompleted, msg.Type)
	assert.Equal(t, "tournament_12", msg.RoomID)
}

func TestWebSocketHandler_RejectsForeignOrigin(t *testing.T) {
	hub := brackets.NewHub(nil)
	r := chi.NewRouter()
	r.Get("/ws/tournaments/{tournamentID}", NewWebSocketHandler(hub, []string{"https://finals.example"}, slog.New(slog.DiscardHandler)).ServeWs)
	srv := httptest.NewServer(r)
	defer srv.Close()

	header := http.Header{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/tournaments/1", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
