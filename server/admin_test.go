package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAdminFixture(t *testing.T) (*Admin, *Registry) {
	t.Helper()
	m := &RelayMetrics{}
	reg := NewRegistry(zap.NewNop().Sugar(), m)
	go reg.Run()
	t.Cleanup(reg.Stop)
	return NewAdmin(reg, m), reg
}

// waitSettled 等事件循环消化完之前投递的事件（Query 是串行屏障）
func waitSettled(t *testing.T, reg *Registry) []PlayerState {
	t.Helper()
	reply := make(chan []PlayerState, 1)
	reg.Inbox <- Query{Reply: reply}
	select {
	case players := <-reply:
		return players
	case <-time.After(time.Second):
		t.Fatal("registry did not answer query")
		return nil
	}
}

func TestAdminPlayersListsRegistry(t *testing.T) {
	admin, reg := newAdminFixture(t)
	reg.Inbox <- Connect{ID: "a", Conn: &fakeConn{}}
	reg.Inbox <- Connect{ID: "b", Conn: &fakeConn{}}
	waitSettled(t, reg)

	rec := httptest.NewRecorder()
	admin.HandlePlayers(rec, httptest.NewRequest(http.MethodGet, "/admin/players", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Count   int           `json:"count"`
		Players []PlayerState `json:"players"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 2, payload.Count)
	require.Len(t, payload.Players, 2)
}

func TestAdminPlayersRejectsPost(t *testing.T) {
	admin, _ := newAdminFixture(t)
	rec := httptest.NewRecorder()
	admin.HandlePlayers(rec, httptest.NewRequest(http.MethodPost, "/admin/players", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAdminKickRemovesPlayer(t *testing.T) {
	admin, reg := newAdminFixture(t)
	fa := &fakeConn{}
	fb := &fakeConn{}
	reg.Inbox <- Connect{ID: "a", Conn: fa}
	reg.Inbox <- Connect{ID: "b", Conn: fb}
	waitSettled(t, reg)

	rec := httptest.NewRecorder()
	admin.HandleKick(rec, httptest.NewRequest(http.MethodPost, "/admin/kick?id=b", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	players := waitSettled(t, reg)
	require.Len(t, players, 1)
	require.Equal(t, PlayerID("a"), players[0].ID)
	require.True(t, fb.closed)
}

func TestAdminKickRequiresID(t *testing.T) {
	admin, _ := newAdminFixture(t)
	rec := httptest.NewRecorder()
	admin.HandleKick(rec, httptest.NewRequest(http.MethodPost, "/admin/kick", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	admin, reg := newAdminFixture(t)
	reg.Inbox <- Connect{ID: "a", Conn: &fakeConn{}}
	reg.Inbox <- Movement{ID: "a", Update: MovementUpdate{Position: Vec3{X: 1}}}
	waitSettled(t, reg)

	rec := httptest.NewRecorder()
	admin.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Players int              `json:"players"`
		Metrics map[string]int64 `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Players)
	require.EqualValues(t, 1, payload.Metrics["connects"])
	require.EqualValues(t, 1, payload.Metrics["movement_updates"])
}
