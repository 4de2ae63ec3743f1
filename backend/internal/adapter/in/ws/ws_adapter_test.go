package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-editor/backend/internal/adapter/out/memory"
	"room-editor/backend/internal/core/domain/service"
	"room-editor/backend/internal/persistence"
	"room-editor/backend/internal/telemetry"
	"room-editor/backend/internal/world"
)

type testEnv struct {
	adapter *WSAdapter
	editor  *service.EditorService
	server  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	n := 0
	registry := world.NewRegistryWithIDs(func() string {
		n++
		return fmt.Sprintf("obj-%04d", n)
	}, logger)
	scene := world.NewScene(registry, logger)
	gateway := persistence.NewGateway(memory.NewSlotStore(), logger)

	editor := service.NewEditorService(scene, gateway, service.Config{}, logger)
	tm := telemetry.NewTelemetryManager(logger)
	editor.SetTelemetry(tm)
	require.NoError(t, editor.SaveInitialState())

	adapter := NewWSAdapter(editor, tm, logger)
	mux := http.NewServeMux()
	adapter.RegisterRoutes(mux)
	server := httptest.NewServer(mux)

	t.Cleanup(server.Close)
	t.Cleanup(adapter.Close)
	return &testEnv{adapter: adapter, editor: editor, server: server}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil читает сообщения, пока не придет нужный тип, удовлетворяющий match
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, match func(map[string]interface{}) bool) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]interface{}
		require.NoError(t, conn.ReadJSON(&msg), "ожидалось сообщение %s", msgType)
		if msg["type"] == msgType && (match == nil || match(msg)) {
			return msg
		}
	}
}

type expect struct {
	msgType string
	match   func(map[string]interface{}) bool
}

// readAll читает сообщения, пока каждое ожидание не будет выполнено,
// независимо от порядка прихода
func readAll(t *testing.T, conn *websocket.Conn, expects ...expect) map[string]map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	found := make(map[string]map[string]interface{}, len(expects))
	for len(found) < len(expects) {
		var msg map[string]interface{}
		require.NoError(t, conn.ReadJSON(&msg), "получено %d из %d ожидаемых сообщений", len(found), len(expects))
		for _, e := range expects {
			if _, done := found[e.msgType]; done || msg["type"] != e.msgType {
				continue
			}
			if e.match == nil || e.match(msg) {
				found[e.msgType] = msg
			}
		}
	}
	return found
}

func historyField(msg map[string]interface{}, key string) interface{} {
	return msg["history"].(map[string]interface{})[key]
}

func furniture(msg map[string]interface{}) []interface{} {
	scene := msg["scene"].(map[string]interface{})
	items, _ := scene["furniture"].([]interface{})
	return items
}

func furnitureCount(n int) func(map[string]interface{}) bool {
	return func(msg map[string]interface{}) bool {
		return len(furniture(msg)) == n
	}
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func TestWSAdapter_InitialState(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	scene := readUntil(t, conn, MessageTypeScene, nil)
	assert.Empty(t, furniture(scene))

	hist := readUntil(t, conn, MessageTypeHistory, nil)
	status := hist["history"].(map[string]interface{})
	assert.Equal(t, 1.0, status["count"])
	assert.Equal(t, "1 actions", status["label"])

	sel := readUntil(t, conn, MessageTypeSelection, nil)
	assert.Nil(t, sel["inspector"])

	assert.Eventually(t, func() bool { return env.adapter.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestWSAdapter_AddObjectBroadcastsToAllClients(t *testing.T) {
	env := newTestEnv(t)
	first := env.dial(t)
	second := env.dial(t)
	readUntil(t, first, MessageTypeSelection, nil)
	readUntil(t, second, MessageTypeSelection, nil)

	send(t, first, map[string]interface{}{"type": MessageTypeAddObject, "kind": "box"})

	got := readAll(t, first,
		expect{MessageTypeScene, furnitureCount(1)},
		expect{MessageTypeAck, nil},
	)
	box := furniture(got[MessageTypeScene])[0].(map[string]interface{})
	assert.Equal(t, "Box 1", box["name"])
	assert.True(t, strings.HasPrefix(box["id"].(string), "obj-"))

	ack := got[MessageTypeAck]
	assert.Equal(t, MessageTypeAddObject, ack["cmd"])
	assert.Equal(t, box["id"], ack["id"])

	got = readAll(t, second,
		expect{MessageTypeScene, furnitureCount(1)},
		expect{MessageTypeHistory, func(msg map[string]interface{}) bool {
			return historyField(msg, "current") == "Add Box"
		}},
		expect{MessageTypeSelection, func(msg map[string]interface{}) bool {
			return msg["inspector"] != nil
		}},
	)
	assert.Equal(t, 2.0, historyField(got[MessageTypeHistory], "count"))
}

func TestWSAdapter_UndoRedo(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)
	readUntil(t, conn, MessageTypeSelection, nil)

	send(t, conn, map[string]interface{}{"type": MessageTypeAddObject, "kind": "sphere"})
	readUntil(t, conn, MessageTypeAck, nil)

	send(t, conn, map[string]interface{}{"type": MessageTypeUndo})
	got := readAll(t, conn,
		expect{MessageTypeScene, furnitureCount(0)},
		expect{MessageTypeHistory, func(msg map[string]interface{}) bool {
			return historyField(msg, "canRedo") == true
		}},
	)
	assert.Equal(t, false, historyField(got[MessageTypeHistory], "canUndo"))

	send(t, conn, map[string]interface{}{"type": MessageTypeRedo})
	readUntil(t, conn, MessageTypeScene, furnitureCount(1))
}

func TestWSAdapter_ApplyTransformInDegrees(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)
	readUntil(t, conn, MessageTypeSelection, nil)

	send(t, conn, map[string]interface{}{"type": MessageTypeAddObject, "kind": "box"})
	readUntil(t, conn, MessageTypeAck, nil)

	send(t, conn, map[string]interface{}{
		"type":        MessageTypeApplyTransform,
		"position":    map[string]interface{}{"x": 1.0, "y": 0.25, "z": -1.0},
		"rotationDeg": map[string]interface{}{"x": 0.0, "y": 90.0, "z": 0.0},
	})

	scene := readUntil(t, conn, MessageTypeScene, func(msg map[string]interface{}) bool {
		items := furniture(msg)
		if len(items) != 1 {
			return false
		}
		pos := items[0].(map[string]interface{})["position"].(map[string]interface{})
		return pos["x"] == 1.0
	})
	rot := furniture(scene)[0].(map[string]interface{})["rotation"].(map[string]interface{})
	assert.InDelta(t, math.Pi/2, rot["y"].(float64), 1e-9)
}

func TestWSAdapter_ErrorsAreReported(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)
	readUntil(t, conn, MessageTypeSelection, nil)

	send(t, conn, map[string]interface{}{"type": "teleport"})
	msg := readUntil(t, conn, MessageTypeError, nil)
	assert.Equal(t, "teleport", msg["cmd"])

	send(t, conn, map[string]interface{}{"type": MessageTypeSelect, "id": "missing"})
	msg = readUntil(t, conn, MessageTypeError, nil)
	assert.Contains(t, msg["message"], "missing")

	send(t, conn, map[string]interface{}{"type": MessageTypeSetColor, "color": "#zzz"})
	msg = readUntil(t, conn, MessageTypeError, nil)
	assert.Equal(t, MessageTypeSetColor, msg["cmd"])

	send(t, conn, map[string]interface{}{"type": MessageTypeBuildRoom, "width": 4.0})
	msg = readUntil(t, conn, MessageTypeError, nil)
	assert.Contains(t, msg["message"], "depth")
}

func TestWSAdapter_Ping(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, map[string]interface{}{"type": MessageTypePing, "clientTime": 123.0})
	pong := readUntil(t, conn, MessageTypePong, nil)
	assert.Equal(t, 123.0, pong["client_time"])
	assert.Equal(t, 123.0, pong["clientTime"])
	assert.NotZero(t, pong["server_time"])
}

func TestWSAdapter_AutoSaveMessages(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)
	readUntil(t, conn, MessageTypeSelection, nil)

	send(t, conn, map[string]interface{}{"type": MessageTypeLoadAutoSave})
	info := readUntil(t, conn, MessageTypeInfo, func(msg map[string]interface{}) bool {
		return msg["message"] == "No auto-save found"
	})
	assert.NotNil(t, info)

	send(t, conn, map[string]interface{}{"type": MessageTypeSaveAutoSave})
	readUntil(t, conn, MessageTypeInfo, func(msg map[string]interface{}) bool {
		return msg["message"] == "Scene auto-saved"
	})

	send(t, conn, map[string]interface{}{"type": MessageTypeSaveAutoSave})
	readUntil(t, conn, MessageTypeInfo, func(msg map[string]interface{}) bool {
		return msg["message"] == "No changes to save"
	})
}

func TestWSAdapter_CloseDisconnectsClients(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)
	readUntil(t, conn, MessageTypeSelection, nil)

	env.adapter.Close()
	assert.Equal(t, 0, env.adapter.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestHTTP_ExportImport(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.editor.AddChair()
	require.NoError(t, err)

	resp, err := http.Get(env.server.URL + "/api/scene/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "room-")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	doc, err := persistence.ParseDocument(body)
	require.NoError(t, err)
	require.Len(t, doc.Furniture, 1)
	assert.Equal(t, "chair", doc.Furniture[0].Type)

	bad, err := http.Post(env.server.URL+"/api/scene/import", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
	assert.Equal(t, "Add Chair", env.editor.HistoryStatus().Current, "сцена не меняется при ошибке")

	ok, err := http.Post(env.server.URL+"/api/scene/import", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer ok.Body.Close()
	require.Equal(t, http.StatusOK, ok.StatusCode)

	var view map[string]interface{}
	require.NoError(t, json.NewDecoder(ok.Body).Decode(&view))
	assert.Len(t, view["furniture"], 1)
	assert.Equal(t, "Load Scene", env.editor.HistoryStatus().Current)
}

func TestHTTP_PlanAndTelemetry(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.editor.AddBox()
	require.NoError(t, err)

	resp, err := http.Get(env.server.URL + "/api/scene/plan.pdf")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	tr, err := http.Get(env.server.URL + "/api/telemetry")
	require.NoError(t, err)
	defer tr.Body.Close()

	var entries []telemetry.EditData
	require.NoError(t, json.NewDecoder(tr.Body).Decode(&entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "Add Box", entries[len(entries)-1].Operation)
}
