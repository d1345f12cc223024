package brackets

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishTournamentEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	room := TournamentRoom(3)
	member := &Client{Hub: hub, Send: make(chan []byte, 1), Room: room}
	outsider := &Client{Hub: hub, Send: make(chan []byte, 1), Room: TournamentRoom(4)}
	require.True(t, hub.Join(member))
	require.True(t, hub.Join(outsider))
	require.Eventually(t, func() bool { return hub.RoomSize(room) == 1 }, time.Second, 5*time.Millisecond)

	hub.PublishTournamentEvent(3, EventPhaseStarted, map[string]int{"phase_id": 9})

	select {
	case raw := <-member.Send:
		var msg struct {
			Type    string         `json:"type"`
			RoomID  string         `json:"room_id"`
			Payload map[string]int `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, EventPhaseStarted, msg.Type)
		assert.Equal(t, "tournament_3", msg.RoomID)
		assert.Equal(t, 9, msg.Payload["phase_id"])
	case <-time.After(time.Second):
		t.Fatal("member did not receive the event")
	}
	assert.Empty(t, outsider.Send)
}

func TestHub_StopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := &Client{Hub: hub, Send: make(chan []byte, 1), Room: TournamentRoom(1)}
	require.True(t, hub.Join(c))
	cancel()
	<-stopped

	_, open := <-c.Send
	assert.False(t, open)
	assert.False(t, hub.Join(&Client{Hub: hub, Send: make(chan []byte), Room: "x"}))
}
