package services

import (
	"context"
	"strings"
	"testing"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMatchFixture(t *testing.T) (MatchService, *store, *fakeUploads, *fakeUploader, int) {
	t.Helper()
	st := newStore()
	uploads := &fakeUploads{store: st}
	uploader := newFakeUploader()
	matchID := st.id()
	st.matches[matchID] = &models.FinalsMatch{ID: matchID, PhaseID: 1, UID: "R1M1", Round: 1, OrderInRound: 1}
	return NewMatchService(fakeFinals{st}, uploads, uploader, nil), st, uploads, uploader, matchID
}

func TestUploadProof(t *testing.T) {
	svc, st, _, uploader, matchID := newMatchFixture(t)
	player := models.Identity{UserID: 5, Role: models.RolePlayer}

	upload, err := svc.UploadProof(context.Background(), player, matchID, "Result.PNG", "image/png; charset=binary", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.NotZero(t, upload.ID)
	assert.Equal(t, 5, upload.UserID)
	assert.Equal(t, "image/png", upload.ContentType)
	assert.True(t, strings.HasPrefix(upload.ObjectKey, "matches/"))
	assert.True(t, strings.HasSuffix(upload.ObjectKey, ".png"))
	assert.Equal(t, "https://cdn.example.test/"+upload.ObjectKey, upload.URL)
	assert.Equal(t, []byte("png-bytes"), uploader.objects[upload.ObjectKey])
	assert.Contains(t, st.uploads, upload.ID)
}

func TestUploadProof_Rejections(t *testing.T) {
	svc, _, _, _, matchID := newMatchFixture(t)
	player := models.Identity{UserID: 5, Role: models.RolePlayer}

	_, err := svc.UploadProof(context.Background(), player, matchID, "run.exe", "application/x-msdownload", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = svc.UploadProof(context.Background(), player, 404, "a.png", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrMatchNotFound)

	noStorage := NewMatchService(fakeFinals{newStore()}, &fakeUploads{store: newStore()}, nil, nil)
	_, err = noStorage.UploadProof(context.Background(), player, matchID, "a.png", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestUploadProof_RemovesObjectWhenRecordFails(t *testing.T) {
	svc, _, uploads, uploader, matchID := newMatchFixture(t)
	uploads.failCreate = true

	_, err := svc.UploadProof(context.Background(), models.Identity{UserID: 5}, matchID, "a.jpg", "image/jpeg", strings.NewReader("x"))
	require.Error(t, err)
	assert.Empty(t, uploader.objects)
	assert.Len(t, uploader.deleted, 1)
}

func TestDeleteProof_OwnerOrAdmin(t *testing.T) {
	svc, st, _, uploader, matchID := newMatchFixture(t)
	owner := models.Identity{UserID: 5, Role: models.RolePlayer}

	upload, err := svc.UploadProof(context.Background(), owner, matchID, "a.webp", "image/webp", strings.NewReader("x"))
	require.NoError(t, err)

	err = svc.DeleteProof(context.Background(), models.Identity{UserID: 6, Role: models.RolePlayer}, upload.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	err = svc.DeleteProof(context.Background(), models.Identity{UserID: 1, Role: models.RoleAdmin}, upload.ID)
	require.NoError(t, err)
	assert.NotContains(t, st.uploads, upload.ID)
	assert.Equal(t, []string{upload.ObjectKey}, uploader.deleted)

	err = svc.DeleteProof(context.Background(), owner, upload.ID)
	assert.ErrorIs(t, err, ErrUploadNotFound)
}

func TestListFinalsMatches_EmptyIsNotNil(t *testing.T) {
	svc, _, _, _, _ := newMatchFixture(t)

	matches, err := svc.ListFinalsMatches(context.Background(), 42)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}
