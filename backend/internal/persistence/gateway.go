package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"room-editor/backend/internal/core/port/out/storage"
	"room-editor/backend/internal/snapshot"
	"room-editor/backend/internal/world"
)

// ErrNoAutoSave автосохранение отсутствует
var ErrNoAutoSave = errors.New("persistence: No auto-save found")

// Gateway сохраняет сцену в документ и загружает ее обратно.
// Вызывающая сторона сериализует доступ к сцене.
type Gateway struct {
	store  storage.SlotStore
	now    func() time.Time
	logger *log.Logger

	mu         sync.Mutex
	lastDigest snapshot.Digest
	hasDigest  bool
}

// NewGateway создает шлюз сохранения поверх хранилища слотов
func NewGateway(store storage.SlotStore, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// ExportToFile записывает документ сцены в w и возвращает имя файла
func (g *Gateway) ExportToFile(w io.Writer, scene *world.Scene) (string, error) {
	now := g.now()
	doc := BuildDocument(scene, now, false)
	data, err := doc.Marshal()
	if err != nil {
		return "", fmt.Errorf("экспорт сцены: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("экспорт сцены: %w", err)
	}
	g.logger.Printf("[Persistence] Экспорт сцены: %d предметов мебели, %d байт", len(doc.Furniture), len(data))
	return FileName(now), nil
}

// ImportFromFile разбирает документ и применяет его к сцене. При ошибке
// разбора сцена не изменяется.
func (g *Gateway) ImportFromFile(scene *world.Scene, data []byte) (*Document, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		g.logger.Printf("[Persistence] Ошибка загрузки сцены: %v", err)
		return nil, err
	}
	doc.Apply(scene)
	g.logger.Printf("[Persistence] Сцена загружена: %d предметов мебели", len(doc.Furniture))
	return doc, nil
}

// AutoSave записывает сцену в слот автосохранения. Если содержимое не
// изменилось с прошлой записи, запись пропускается и возвращается false.
func (g *Gateway) AutoSave(ctx context.Context, scene *world.Scene) (bool, error) {
	doc := BuildDocument(scene, g.now(), true)
	digest, err := contentDigest(doc)
	if err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasDigest && digest == g.lastDigest {
		return false, nil
	}

	data, err := doc.Marshal()
	if err != nil {
		return false, fmt.Errorf("автосохранение: %w", err)
	}
	if err := g.store.Put(ctx, AutoSaveKey, data); err != nil {
		return false, fmt.Errorf("автосохранение: %w", err)
	}

	g.lastDigest = digest
	g.hasDigest = true
	g.logger.Printf("[Persistence] Автосохранение %s (%d байт)", digest, len(data))
	return true, nil
}

// LoadAutoSave загружает сцену из слота автосохранения
func (g *Gateway) LoadAutoSave(ctx context.Context, scene *world.Scene) (*Document, error) {
	data, err := g.store.Get(ctx, AutoSaveKey)
	if errors.Is(err, storage.ErrSlotNotFound) {
		return nil, ErrNoAutoSave
	}
	if err != nil {
		return nil, fmt.Errorf("чтение автосохранения: %w", err)
	}
	return g.ImportFromFile(scene, data)
}

// contentDigest хеширует документ без метки времени
func contentDigest(doc *Document) (snapshot.Digest, error) {
	body, err := json.Marshal(struct {
		Room      *Room           `json:"room"`
		Materials *MaterialColors `json:"materials"`
		Furniture []Item          `json:"furniture"`
	}{doc.Room, doc.Materials, doc.Furniture})
	if err != nil {
		return snapshot.Digest{}, fmt.Errorf("хеш документа: %w", err)
	}
	return snapshot.Sum(body), nil
}

// Saver выполняет одно автосохранение
type Saver interface {
	AutoSave(ctx context.Context) (bool, error)
}

// AutoSaver периодически вызывает автосохранение
type AutoSaver struct {
	saver    Saver
	interval time.Duration

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	logger *log.Logger
}

// NewAutoSaver создает цикл автосохранения; interval <= 0 означает 30 секунд
func NewAutoSaver(saver Saver, interval time.Duration, logger *log.Logger) *AutoSaver {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AutoSaver{
		saver:    saver,
		interval: interval,
		logger:   logger,
	}
}

// Start запускает цикл автосохранения
func (a *AutoSaver) Start(parent context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isRunning {
		return
	}
	a.ctx, a.cancel = context.WithCancel(parent)
	a.done = make(chan struct{})
	a.isRunning = true

	a.logger.Printf("[AutoSave] Запуск автосохранения каждые %v", a.interval)
	go a.loop(a.ctx, a.done)
}

// Stop останавливает цикл и дожидается его завершения
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	if !a.isRunning {
		a.mu.Unlock()
		return
	}
	a.cancel()
	done := a.done
	a.isRunning = false
	a.mu.Unlock()

	<-done
	a.logger.Printf("[AutoSave] Автосохранение остановлено")
}

func (a *AutoSaver) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.saver.AutoSave(ctx); err != nil {
				a.logger.Printf("[AutoSave] Ошибка: %v", err)
			}
		}
	}
}
