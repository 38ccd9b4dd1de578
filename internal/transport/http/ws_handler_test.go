package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

type wsFrame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func TestLeaderboardStreamReceivesLiveUpdates(t *testing.T) {
	h := newHarness(t)
	alice, token := h.seedUser(t, "alice@example.com", domain.RoleUser, "")
	if _, err := h.leaderboard.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	server := httptest.NewServer(h.e)
	defer server.Close()

	header := http.Header{}
	header.Add("Cookie", "quizrevenue_session="+token)
	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard?scope=global"
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Seeded snapshot arrives first.
	frame := readFrame(t, conn)
	if frame.Type != "leaderboard" {
		t.Fatalf("expected leaderboard frame, got %s", frame.Type)
	}
	if entries := frame.Payload["entries"].([]any); len(entries) != 1 {
		t.Fatalf("expected seeded entry, got %v", entries)
	}

	// A committed attempt from another user is pushed to the board.
	bob := domain.User{ID: uuid.New(), FirstName: "Bob", Points: 90, TotalEarnings: decimal.RequireFromString("3.20"), QuizzesCompleted: 1}
	h.leaderboard.Record(bob)

	frame = readFrame(t, conn)
	entries := frame.Payload["entries"].([]any)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after update, got %d", len(entries))
	}
	top := entries[0].(map[string]any)
	if top["userId"] != bob.ID.String() || top["rank"] != float64(1) {
		t.Fatalf("expected bob ranked first, got %v", top)
	}
	second := entries[1].(map[string]any)
	if second["userId"] != alice.ID.String() {
		t.Fatalf("expected alice second, got %v", second)
	}

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if frame := readFrame(t, conn); frame.Type != "pong" {
		t.Fatalf("expected pong, got %s", frame.Type)
	}

	if err := conn.WriteJSON(map[string]string{"type": "answer"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if frame := readFrame(t, conn); frame.Type != "error" {
		t.Fatalf("expected error frame, got %s", frame.Type)
	}
}

func TestLeaderboardStreamRequiresSession(t *testing.T) {
	h := newHarness(t)
	server := httptest.NewServer(h.e)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake failure without session")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	var msg wsFrame
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}
