package telemetry

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Vector3 структура для 3D вектора
type Vector3 struct {
	X, Y, Z float64
}

// EditData запись об одной операции редактирования
type EditData struct {
	Timestamp  int64   `json:"timestamp"`             // Время в миллисекундах
	Operation  string  `json:"operation"`             // Описание операции ("Add Box", "Undo", ...)
	ObjectID   string  `json:"object_id,omitempty"`   // ID объекта
	ObjectKind string  `json:"object_kind,omitempty"` // Вид объекта (box, chair, ...)
	Position   Vector3 `json:"position"`              // Позиция после операции
	Furniture  int     `json:"furniture"`             // Мебели в сцене после операции
	Assets     int     `json:"assets"`                // Элементов комнаты после операции
	DurationUs int64   `json:"duration_us"`           // Длительность операции
	Source     string  `json:"source"`                // Источник (ws, http, autosave)
}

// TelemetryManager управляет сбором и выводом телеметрии
type TelemetryManager struct {
	enabled    bool
	data       []EditData
	mutex      sync.RWMutex
	maxEntries int

	// Счетчики для статистики
	counters      map[string]int
	lastPrint     time.Time
	printInterval time.Duration

	logger *log.Logger
}

// NewTelemetryManager создает новый менеджер телеметрии
func NewTelemetryManager(logger *log.Logger) *TelemetryManager {
	if logger == nil {
		logger = log.Default()
	}
	return &TelemetryManager{
		enabled:       true,
		data:          make([]EditData, 0),
		maxEntries:    200, // Храним последние 200 записей
		counters:      make(map[string]int),
		lastPrint:     time.Now(),
		printInterval: 30 * time.Second,
		logger:        logger,
	}
}

// LogEdit записывает операцию редактирования
func (tm *TelemetryManager) LogEdit(operation, source, objectID, objectKind string,
	position mgl64.Vec3, furniture, assets int, duration time.Duration) {

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	entry := EditData{
		Timestamp:  time.Now().UnixMilli(),
		Operation:  operation,
		ObjectID:   objectID,
		ObjectKind: objectKind,
		Position:   Vector3{X: position.X(), Y: position.Y(), Z: position.Z()},
		Furniture:  furniture,
		Assets:     assets,
		DurationUs: duration.Microseconds(),
		Source:     source,
	}

	tm.data = append(tm.data, entry)

	// Ограничиваем размер буфера
	if len(tm.data) > tm.maxEntries {
		tm.data = tm.data[1:]
	}

	tm.counters[operation]++
}

// PrintSummary выводит сводку телеметрии не чаще printInterval
func (tm *TelemetryManager) PrintSummary() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	now := time.Now()
	if now.Sub(tm.lastPrint) < tm.printInterval {
		return
	}

	tm.logger.Println("[Telemetry] ===== ТЕЛЕМЕТРИЯ РЕДАКТОРА =====")
	tm.logger.Printf("[Telemetry] Всего записей: %d", len(tm.data))

	operations := make([]string, 0, len(tm.counters))
	for op := range tm.counters {
		operations = append(operations, op)
	}
	sort.Strings(operations)
	for _, op := range operations {
		tm.logger.Printf("[Telemetry] %s: %d", op, tm.counters[op])
	}

	if n := len(tm.data); n > 0 {
		last := tm.data[n-1]
		tm.logger.Printf("[Telemetry] Последняя операция %q [%s]: мебель %d, элементы комнаты %d, %d мкс",
			last.Operation, time.UnixMilli(last.Timestamp).Format("15:04:05.000"),
			last.Furniture, last.Assets, last.DurationUs)
	}

	// Сброс счетчиков
	tm.counters = make(map[string]int)
	tm.lastPrint = now

	tm.logger.Println("[Telemetry] ===================================")
}

// Counters возвращает копию счетчиков операций с последней сводки
func (tm *TelemetryManager) Counters() map[string]int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	result := make(map[string]int, len(tm.counters))
	for k, v := range tm.counters {
		result[k] = v
	}
	return result
}

// Len количество записей в буфере
func (tm *TelemetryManager) Len() int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return len(tm.data)
}

// GetTelemetryJSON возвращает телеметрию в JSON формате
func (tm *TelemetryManager) GetTelemetryJSON() (string, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	jsonData, err := json.MarshalIndent(tm.data, "", "  ")
	if err != nil {
		return "", err
	}

	return string(jsonData), nil
}

// SetEnabled включает/выключает телеметрию
func (tm *TelemetryManager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.enabled = enabled
	tm.logger.Printf("[Telemetry] Телеметрия %s", map[bool]string{true: "включена", false: "выключена"}[enabled])
}

// Clear очищает все данные телеметрии
func (tm *TelemetryManager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.data = make([]EditData, 0)
	tm.counters = make(map[string]int)
	tm.logger.Println("[Telemetry] Данные телеметрии очищены")
}

// Глобальный экземпляр телеметрии
var GlobalTelemetry = NewTelemetryManager(nil)
