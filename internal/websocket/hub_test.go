package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, w, r, nil)
	}))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients, have %d", want, hub.ClientCount())
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHubBroadcastRunStatus(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()

	waitForClients(t, hub, 1)

	hub.BroadcastRunStatus("run-1", "active", "cleansing readings")

	msg := readMessage(t, conn)
	assert.Equal(t, TypeRunStatus, msg["type"])

	data, ok := msg["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-1", data["run_id"])
	assert.Equal(t, "active", data["status"])
	assert.Equal(t, "cleansing readings", data["message"])
}

func TestHubBroadcastStageProgress(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()

	waitForClients(t, hub, 1)

	hub.BroadcastStageProgress("run-2", "forecast", "active", 60, "fitting models")

	msg := readMessage(t, conn)
	assert.Equal(t, TypeStageProgress, msg["type"])

	data := msg["data"].(map[string]interface{})
	assert.Equal(t, "forecast", data["stage"])
	assert.Equal(t, float64(60), data["progress"])
}

func TestHubBroadcastRunCompleteLevels(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()

	waitForClients(t, hub, 1)

	hub.BroadcastRunComplete("run-3", false, "ingest failed")

	msg := readMessage(t, conn)
	assert.Equal(t, TypeRunComplete, msg["type"])

	data := msg["data"].(map[string]interface{})
	assert.Equal(t, false, data["success"])
	assert.Equal(t, LevelError, data["level"])
}

func TestHubClientDisconnect(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	conn, cleanup := dialTestHub(t, hub)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
	cleanup()
}

func TestHubBroadcastRefresh(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()

	waitForClients(t, hub, 1)

	hub.BroadcastRefresh("pipeline", []string{"daily", "forecast"})

	msg := readMessage(t, conn)
	assert.Equal(t, TypeDataRefresh, msg["type"])
	assert.Equal(t, ActionRefresh, msg["action"])
}

func TestUnregisterAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()

	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()

	waitForClients(t, hub, 1)

	hub.Stop()
	conn.Close()

	// The client's read pump unregisters on its way out; with the hub loop
	// gone that must still return promptly.
	done := make(chan struct{})
	go func() {
		hub.Unregister(&Client{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unregister blocked after hub stop")
	}
}
