package ws

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriter_WriteJSON_Concurrency(t *testing.T) {
	received := make(chan []string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		var msgs []string
		for i := 0; i < 10; i++ {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			msgs = append(msgs, string(msg))
		}
		received <- msgs
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	wsConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer wsConn.Close()

	writer := NewSafeWriter(wsConn)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			time.Sleep(time.Duration(id) * time.Millisecond)

			msg := struct {
				ID  int    `json:"id"`
				Msg string `json:"msg"`
			}{ID: id, Msg: "Test message"}
			assert.NoError(t, writer.WriteJSON(msg))
		}(i)
	}
	wg.Wait()

	select {
	case msgs := <-received:
		require.Len(t, msgs, 10)
		uniq := make(map[string]struct{})
		for _, msg := range msgs {
			uniq[msg] = struct{}{}
		}
		assert.Len(t, uniq, 10, "сообщения не должны перемешиваться")
	case <-time.After(5 * time.Second):
		t.Fatal("сервер не получил сообщения")
	}
}

func TestSafeWriter_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	wsConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	writer := NewSafeWriter(wsConn)
	require.NoError(t, writer.Close())
	assert.Error(t, writer.WriteJSON("test"), "запись в закрытое соединение")
}

func TestSanitizeMapValues(t *testing.T) {
	data := map[string]interface{}{
		"x":      math.NaN(),
		"nested": map[string]interface{}{"y": math.Inf(1)},
		"list":   []interface{}{1.0, math.NaN(), map[string]interface{}{"z": math.NaN()}},
	}
	sanitizeMapValues(data)

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":0,"nested":{"y":0},"list":[1,0,{"z":0}]}`, string(raw))
}
