package history

import (
	"fmt"
	"log"

	"room-editor/backend/internal/snapshot"
	"room-editor/backend/internal/world"
)

// Codec снимает и восстанавливает состояние сцены
type Codec interface {
	Capture(scene *world.Scene, description string) (*snapshot.Entry, error)
	Restore(entry *snapshot.Entry, scene *world.Scene) (int, error)
}

// Status состояние истории для интерфейса
type Status struct {
	Count     int    `json:"count"`
	Index     int    `json:"index"`
	RedoDepth int    `json:"redoDepth"`
	CanUndo   bool   `json:"canUndo"`
	CanRedo   bool   `json:"canRedo"`
	Label     string `json:"label"`
	Current   string `json:"current,omitempty"`
}

// Label подпись счетчика истории: "No actions yet" или "N actions"
func Label(count int) string {
	if count == 0 {
		return "No actions yet"
	}
	return fmt.Sprintf("%d actions", count)
}

// Manager хранит стек отмены, индекс текущего состояния и стек повтора.
// Manager не потокобезопасен: вызывающая сторона сериализует доступ.
type Manager struct {
	codec Codec
	scene *world.Scene

	undoStack  []*snapshot.Entry
	redoStack  []*snapshot.Entry
	index      int
	maxHistory int

	onChange  func(Status)
	onRestore func(entry *snapshot.Entry)
	logger    *log.Logger
}

// NewManager создает менеджер истории с ограничением maxHistory записей
func NewManager(codec Codec, scene *world.Scene, maxHistory int, logger *log.Logger) *Manager {
	if maxHistory <= 0 {
		maxHistory = world.GetEditorConfig().MaxHistory
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		codec:      codec,
		scene:      scene,
		index:      -1,
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// OnChange регистрирует наблюдателя счетчика истории
func (m *Manager) OnChange(fn func(Status)) {
	m.onChange = fn
}

// OnRestore регистрирует наблюдателя, вызываемого после отмены или повтора
func (m *Manager) OnRestore(fn func(entry *snapshot.Entry)) {
	m.onRestore = fn
}

// SaveState отбрасывает ветку после текущего индекса, добавляет снимок,
// вытесняет самую старую запись при переполнении и очищает стек повтора.
func (m *Manager) SaveState(description string) error {
	entry, err := m.codec.Capture(m.scene, description)
	if err != nil {
		return fmt.Errorf("сохранение состояния %q: %w", description, err)
	}

	if m.index < len(m.undoStack)-1 {
		m.undoStack = m.undoStack[:m.index+1]
	}

	m.undoStack = append(m.undoStack, entry)
	if len(m.undoStack) > m.maxHistory {
		m.undoStack = m.undoStack[1:]
	}
	m.index = len(m.undoStack) - 1
	m.redoStack = nil

	m.logger.Printf("[History] Сохранено состояние %q (%d/%d, %d байт)",
		entry.Description, len(m.undoStack), m.maxHistory, entry.Size())
	m.notify()
	return nil
}

// Undo возвращает сцену к предыдущей записи. На стек повтора кладется
// запись, которую покидаем. Ниже самой старой записи отмена не опускается.
func (m *Manager) Undo() (bool, error) {
	if m.index <= 0 {
		return false, nil
	}

	if err := m.restore(m.undoStack[m.index-1]); err != nil {
		return false, err
	}
	m.redoStack = append(m.redoStack, m.undoStack[m.index])
	m.index--
	m.notify()
	return true, nil
}

// Redo снимает запись со стека повтора, добавляет ее в конец стека отмены
// и восстанавливает ее.
func (m *Manager) Redo() (bool, error) {
	if len(m.redoStack) == 0 {
		return false, nil
	}

	last := len(m.redoStack) - 1
	entry := m.redoStack[last]
	if err := m.restore(entry); err != nil {
		return false, err
	}
	m.redoStack = m.redoStack[:last]

	m.undoStack = append(m.undoStack, entry)
	m.index++
	if len(m.undoStack) > m.maxHistory {
		m.undoStack = m.undoStack[1:]
		m.index--
	}
	m.notify()
	return true, nil
}

func (m *Manager) restore(entry *snapshot.Entry) error {
	skipped, err := m.codec.Restore(entry, m.scene)
	if err != nil {
		m.logger.Printf("[History] Ошибка восстановления %q: %v", entry.Description, err)
		return err
	}
	if skipped > 0 {
		m.logger.Printf("[History] При восстановлении %q пропущено объектов: %d", entry.Description, skipped)
	}

	if m.onRestore != nil {
		m.onRestore(entry)
	}
	return nil
}

func (m *Manager) notify() {
	if m.onChange != nil {
		m.onChange(m.Status())
	}
}

// Status возвращает сводку состояния истории
func (m *Manager) Status() Status {
	status := Status{
		Count:     len(m.undoStack),
		Index:     m.index,
		RedoDepth: len(m.redoStack),
		CanUndo:   m.index > 0,
		CanRedo:   len(m.redoStack) > 0,
		Label:     m.HistoryLabel(),
	}
	if current := m.Current(); current != nil {
		status.Current = current.Description
	}
	return status
}

// Current возвращает запись под текущим индексом
func (m *Manager) Current() *snapshot.Entry {
	if m.index < 0 || m.index >= len(m.undoStack) {
		return nil
	}
	return m.undoStack[m.index]
}

// Count количество записей в стеке отмены
func (m *Manager) Count() int {
	return len(m.undoStack)
}

// Index индекс текущей записи
func (m *Manager) Index() int {
	return m.index
}

// RedoDepth глубина стека повтора
func (m *Manager) RedoDepth() int {
	return len(m.redoStack)
}

// PeekRedo возвращает запись, которую восстановит следующий Redo
func (m *Manager) PeekRedo() *snapshot.Entry {
	if len(m.redoStack) == 0 {
		return nil
	}
	return m.redoStack[len(m.redoStack)-1]
}

// Entries возвращает описания записей от старой к новой
func (m *Manager) Entries() []string {
	result := make([]string, len(m.undoStack))
	for i, entry := range m.undoStack {
		result[i] = entry.Description
	}
	return result
}

// HistoryLabel подпись счетчика истории для текущего стека
func (m *Manager) HistoryLabel() string {
	return Label(len(m.undoStack))
}
