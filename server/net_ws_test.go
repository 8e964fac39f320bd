package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 端到端：真实 WebSocket 升级 + 注册表事件循环
func newWSTestServer(t *testing.T) (*httptest.Server, *Registry) {
	t.Helper()
	cfg := DefaultConfig()
	reg := NewRegistry(zap.NewNop().Sugar(), &RelayMetrics{})
	go reg.Run()
	t.Cleanup(reg.Stop)

	gw := NewGateway(cfg, reg, zap.NewNop().Sugar())
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWS)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, reg
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := DecodeEnvelope(payload)
	require.NoError(t, err)
	return env
}

func TestWSRelayEndToEnd(t *testing.T) {
	ts, _ := newWSTestServer(t)

	// A 接入：收到只含自己默认条目的快照
	connA := dialWS(t, ts)
	env := readEnvelope(t, connA)
	require.Equal(t, EvCurrentPlayers, env.Event)
	snapA, err := DecodeData[map[PlayerID]PlayerState](env)
	require.NoError(t, err)
	require.Len(t, snapA, 1)
	var idA PlayerID
	for id, st := range snapA {
		idA = id
		require.Equal(t, DefaultState(id), st)
	}

	// B 接入：B 的快照含两人；A 收到 B 的 newPlayer
	connB := dialWS(t, ts)
	env = readEnvelope(t, connB)
	require.Equal(t, EvCurrentPlayers, env.Event)
	snapB, err := DecodeData[map[PlayerID]PlayerState](env)
	require.NoError(t, err)
	require.Len(t, snapB, 2)
	require.Contains(t, snapB, idA)

	env = readEnvelope(t, connA)
	require.Equal(t, EvNewPlayer, env.Event)
	newB, err := DecodeData[PlayerState](env)
	require.NoError(t, err)
	require.NotEqual(t, idA, newB.ID)
	idB := newB.ID

	// A 上报移动：B 收到 playerMoved，载荷即 A 的完整最新状态
	move := []byte(`{"event":"playerMovement","data":{
		"position":{"x":1,"y":2,"z":3},
		"quaternion":{"_x":0,"_y":0,"_z":0,"_w":1},
		"velocity":{"x":0,"y":0,"z":0}}}`)
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, move))

	env = readEnvelope(t, connB)
	require.Equal(t, EvPlayerMoved, env.Event)
	moved, err := DecodeData[PlayerState](env)
	require.NoError(t, err)
	require.Equal(t, idA, moved.ID)
	require.Equal(t, Vec3{X: 1, Y: 2, Z: 3}, moved.Position)

	// B 断开：A 收到 playerDisconnected，携带 B 的连接标识
	require.NoError(t, connB.Close())
	env = readEnvelope(t, connA)
	require.Equal(t, EvPlayerDisconnected, env.Event)
	goneID, err := DecodeData[PlayerID](env)
	require.NoError(t, err)
	require.Equal(t, idB, goneID)
}

func TestWSMalformedMessagesAreIgnored(t *testing.T) {
	ts, reg := newWSTestServer(t)

	connA := dialWS(t, ts)
	_ = readEnvelope(t, connA) // currentPlayers

	connB := dialWS(t, ts)
	_ = readEnvelope(t, connB) // currentPlayers
	_ = readEnvelope(t, connA) // newPlayer(B)

	// 各种坏消息：不断连接、不产生广播
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, []byte(`{"event":"selfDestruct","data":{}}`)))

	// 随后一条合法移动仍然被中继，说明连接还活着
	move := []byte(`{"event":"playerMovement","data":{
		"position":{"x":5,"y":0,"z":0},
		"quaternion":{"_x":0,"_y":0,"_z":0,"_w":1},
		"velocity":{"x":0,"y":0,"z":0}}}`)
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, move))

	env := readEnvelope(t, connB)
	require.Equal(t, EvPlayerMoved, env.Event)
	moved, err := DecodeData[PlayerState](env)
	require.NoError(t, err)
	require.Equal(t, Vec3{X: 5}, moved.Position)

	require.Greater(t, reg.metrics.Snapshot()["bad_messages_ignored"].(int64), int64(1))
}
