package ws

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"room-editor/backend/internal/core/domain/entity"
	"room-editor/backend/internal/core/port/in/editing"
	"room-editor/backend/internal/history"
	"room-editor/backend/internal/selection"
	"room-editor/backend/internal/telemetry"
)

const (
	sendBufferSize = 64
	maxMessageSize = 1 << 20
)

// HandlerFunc обрабатывает одно входящее сообщение клиента
type HandlerFunc func(c *client, message map[string]interface{}) error

// client соединение с очередью исходящих сообщений. Запись в сокет
// выполняет только writeLoop.
type client struct {
	writer *SafeWriter
	send   chan interface{}

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		writer: NewSafeWriter(conn),
		send:   make(chan interface{}, sendBufferSize),
	}
}

// enqueue ставит сообщение в очередь; false означает, что очередь
// переполнена или клиент закрыт
func (c *client) enqueue(msg interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// WSAdapter адаптер для WebSocket соединений. Реализует editing.Observer:
// изменения сессии рассылаются всем подключенным клиентам.
type WSAdapter struct {
	upgrader  websocket.Upgrader
	handlers  map[string]HandlerFunc
	editor    editing.EditorPort
	telemetry *telemetry.TelemetryManager
	clients   map[*client]bool
	clientsMu sync.Mutex

	unsubscribe func()
	logger      *log.Logger
}

var _ editing.Observer = (*WSAdapter)(nil)

// NewWSAdapter создает адаптер и подписывает его на изменения сессии
func NewWSAdapter(editor editing.EditorPort, tm *telemetry.TelemetryManager, logger *log.Logger) *WSAdapter {
	if logger == nil {
		logger = log.Default()
	}
	if tm == nil {
		tm = telemetry.GlobalTelemetry
	}

	a := &WSAdapter{
		editor:    editor,
		telemetry: tm,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		handlers: make(map[string]HandlerFunc),
		clients:  make(map[*client]bool),
		logger:   logger,
	}
	a.RegisterHandlers()
	a.unsubscribe = editor.AddObserver(a)
	return a
}

// Close отписывает адаптер от сессии и закрывает все соединения
func (a *WSAdapter) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}

	a.clientsMu.Lock()
	clients := make([]*client, 0, len(a.clients))
	for c := range a.clients {
		clients = append(clients, c)
	}
	a.clients = make(map[*client]bool)
	a.clientsMu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// ClientCount возвращает число подключенных клиентов
func (a *WSAdapter) ClientCount() int {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()
	return len(a.clients)
}

// SceneChanged рассылает новое состояние сцены
func (a *WSAdapter) SceneChanged(view *entity.SceneView) {
	a.broadcast(NewSceneMessage(view))
}

// HistoryChanged рассылает состояние истории
func (a *WSAdapter) HistoryChanged(status history.Status) {
	a.broadcast(NewHistoryMessage(status))
}

// SelectionChanged рассылает выбранный объект
func (a *WSAdapter) SelectionChanged(inspector *selection.Inspector, info selection.Info) {
	a.broadcast(NewSelectionMessage(inspector, info))
}

// broadcast только ставит сообщение в очереди клиентов: наблюдатели
// вызываются под блокировкой сессии
func (a *WSAdapter) broadcast(msg interface{}) {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()

	for c := range a.clients {
		if !c.enqueue(msg) {
			a.logger.Printf("[WSAdapter] Очередь клиента переполнена, соединение закрывается")
			delete(a.clients, c)
			c.close()
		}
	}
}

func (a *WSAdapter) send(c *client, msg interface{}) {
	if !c.enqueue(msg) {
		a.removeClient(c)
	}
}

func (a *WSAdapter) removeClient(c *client) {
	a.clientsMu.Lock()
	delete(a.clients, c)
	a.clientsMu.Unlock()
	c.close()
}

// HandleWS обрабатывает WebSocket соединения
func (a *WSAdapter) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Printf("[WSAdapter] Ошибка при установке WebSocket соединения: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := newClient(conn)
	a.clientsMu.Lock()
	a.clients[c] = true
	a.clientsMu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.writeLoop(c)
	}()

	defer func() {
		a.removeClient(c)
		<-done
		a.logger.Printf("[WSAdapter] Клиент %s отключен", r.RemoteAddr)
	}()

	a.logger.Printf("[WSAdapter] Клиент %s подключен", r.RemoteAddr)
	a.sendInitialState(c)

	for {
		var message map[string]interface{}
		if err := conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.logger.Printf("[WSAdapter] Ошибка при чтении сообщения: %v", err)
			}
			return
		}
		a.dispatch(c, message)
	}
}

// sendInitialState отправляет клиенту сцену, историю и выбор
func (a *WSAdapter) sendInitialState(c *client) {
	inspector, info := a.editor.Selection()
	a.send(c, NewInfoMessage("room editor session"))
	a.send(c, NewSceneMessage(a.editor.View()))
	a.send(c, NewHistoryMessage(a.editor.HistoryStatus()))
	a.send(c, NewSelectionMessage(inspector, info))
}

func (a *WSAdapter) dispatch(c *client, message map[string]interface{}) {
	messageType, ok := message["type"].(string)
	if !ok {
		a.logger.Printf("[WSAdapter] Получено сообщение без типа: %v", message)
		return
	}

	handler, ok := a.handlers[messageType]
	if !ok {
		a.logger.Printf("[WSAdapter] Нет обработчика для типа сообщения: %s", messageType)
		a.send(c, NewErrorMessage(messageType, errUnknownMessage))
		return
	}

	if err := handler(c, message); err != nil {
		a.logger.Printf("[WSAdapter] Ошибка обработки сообщения типа %s: %v", messageType, err)
		a.send(c, NewErrorMessage(messageType, err))
	}
}

// writeLoop отправляет сообщения из очереди, пока она не закрыта
func (a *WSAdapter) writeLoop(c *client) {
	defer c.writer.Close()

	for msg := range c.send {
		if err := c.writer.WriteJSON(msg); err != nil {
			a.logger.Printf("[WSAdapter] Ошибка отправки: %v", err)
			a.removeClient(c)
			// дочитываем очередь до закрытия
			for range c.send {
			}
			return
		}
	}
	_ = c.writer.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
