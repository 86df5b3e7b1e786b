package main

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwv/roomplan/plan"
)

type wsTestEnvelope struct {
	Type  string        `json:"type"`
	Data  plan.Snapshot `json:"data"`
	Error string        `json:"error"`
}

func dialTestWS(t *testing.T) (*Handler, *websocket.Conn) {
	t.Helper()
	h, router := newTestHandler(t, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return h, conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wsTestEnvelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env wsTestEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestWebsocket_InitialSnapshot(t *testing.T) {
	_, conn := dialTestWS(t)

	env := readEnvelope(t, conn)
	assert.Equal(t, "snapshot", env.Type)
	assert.Equal(t, plan.DefaultRoomConfig(), env.Data.Config)
	assert.Empty(t, env.Data.Furniture)
}

func TestWebsocket_CommandUpdatesSession(t *testing.T) {
	h, conn := dialTestWS(t)
	readEnvelope(t, conn) // initial snapshot

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "add", "kind": "plant"}))

	env := readEnvelope(t, conn)
	assert.Equal(t, "snapshot", env.Type)
	require.Len(t, env.Data.Furniture, 1)
	assert.Equal(t, plan.KindPlant, env.Data.Furniture[0].Kind)
	assert.Equal(t, env.Data.Furniture[0].ID, env.Data.SelectedID)
	assert.Len(t, h.session.Furniture(), 1)
}

func TestWebsocket_ChangesFromOtherClientsAreStreamed(t *testing.T) {
	h, conn := dialTestWS(t)
	readEnvelope(t, conn)

	_, err := h.session.AddFurniture(plan.KindRug)
	require.NoError(t, err)

	env := readEnvelope(t, conn)
	require.Len(t, env.Data.Furniture, 1)
	assert.Equal(t, plan.KindRug, env.Data.Furniture[0].Kind)
}

func TestWebsocket_BadCommandReturnsError(t *testing.T) {
	_, conn := dialTestWS(t)
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"rotate"}`)))
	env := readEnvelope(t, conn)
	assert.Equal(t, "error", env.Type)
	assert.Contains(t, env.Error, "no furniture selected")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`garbage`)))
	env = readEnvelope(t, conn)
	assert.Equal(t, "error", env.Type)
	assert.Contains(t, env.Error, "parsing command")
}
