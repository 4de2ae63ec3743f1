package selection

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"room-editor/backend/internal/world"
)

// Lookup находит живой объект по идентификатору
type Lookup interface {
	Find(id string) (*world.SceneObject, bool)
}

// Info сводка о выбранном объекте: имя и строка "тип • короткий id"
type Info struct {
	Selected bool   `json:"selected"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}

// Inspector данные панели свойств выбранного объекта
type Inspector struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Kind        world.Kind         `json:"kind"`
	Geometry    string             `json:"geometry"`
	Params      map[string]float64 `json:"params"`
	Color       string             `json:"color,omitempty"`
	Position    [3]float64         `json:"position"`
	RotationDeg [3]float64         `json:"rotationDeg"`
	Scale       [3]float64         `json:"scale"`
	Tintable    bool               `json:"tintable"`
}

// Manager хранит идентификаторы выбранного и последнего выбранного объекта.
// Ссылки на объекты не хранятся: после восстановления сцены объект
// с тем же идентификатором находится заново.
type Manager struct {
	lookup       Lookup
	selected     string
	lastSelected string
	highlight    uint32

	onInspector    func(*Inspector)
	onSelectedInfo func(Info)
}

// NewManager создает менеджер выбора
func NewManager(lookup Lookup) *Manager {
	return &Manager{
		lookup:    lookup,
		highlight: world.GetPalette().Select,
	}
}

// OnInspectorUpdate регистрирует обновление панели свойств
func (m *Manager) OnInspectorUpdate(fn func(*Inspector)) {
	m.onInspector = fn
}

// OnSelectedInfoUpdate регистрирует обновление строки выбранного объекта
func (m *Manager) OnSelectedInfoUpdate(fn func(Info)) {
	m.onSelectedInfo = fn
}

// Select выбирает объект по идентификатору; пустой id снимает выбор.
// Несуществующий id тоже снимает выбор.
func (m *Manager) Select(id string) {
	if prev, ok := m.lookup.Find(m.selected); ok && m.selected != id {
		prev.Emissive = 0
	}

	obj, ok := m.lookup.Find(id)
	if !ok {
		m.selected = ""
	} else {
		m.selected = obj.ID
		m.lastSelected = obj.ID
		if obj.Tintable() {
			obj.Emissive = m.highlight
		}
	}

	m.Refresh()
}

// Reconcile восстанавливает подсветку после перестройки сцены или снимает
// выбор, если объекта больше нет
func (m *Manager) Reconcile() {
	if m.selected == "" {
		return
	}
	obj, ok := m.lookup.Find(m.selected)
	if !ok {
		m.selected = ""
		m.Refresh()
		return
	}
	if obj.Tintable() {
		obj.Emissive = m.highlight
	}
	m.Refresh()
}

// Refresh вызывает наблюдателей панели свойств и строки выбора
func (m *Manager) Refresh() {
	if m.onInspector != nil {
		m.onInspector(m.Inspector())
	}
	if m.onSelectedInfo != nil {
		m.onSelectedInfo(m.Info())
	}
}

// Selected идентификатор выбранного объекта или пустая строка
func (m *Manager) Selected() string {
	return m.selected
}

// LastSelected идентификатор последнего выбранного объекта
func (m *Manager) LastSelected() string {
	return m.lastSelected
}

// Object возвращает выбранный живой объект
func (m *Manager) Object() (*world.SceneObject, bool) {
	if m.selected == "" {
		return nil, false
	}
	return m.lookup.Find(m.selected)
}

// Info возвращает строку выбранного объекта
func (m *Manager) Info() Info {
	obj, ok := m.Object()
	if !ok {
		return Info{Name: "None", Type: "Click an object to select"}
	}
	name := obj.Name
	if name == "" {
		name = "Unnamed Object"
	}
	return Info{
		Selected: true,
		Name:     name,
		Type:     fmt.Sprintf("%s • %s", obj.Shape.Type, shortID(obj.ID)),
	}
}

// Inspector возвращает данные панели свойств или nil без выбора
func (m *Manager) Inspector() *Inspector {
	obj, ok := m.Object()
	if !ok {
		return nil
	}
	view := &Inspector{
		ID:       obj.ID,
		Name:     obj.Name,
		Kind:     obj.Kind,
		Geometry: obj.Shape.Type.String(),
		Params:   obj.Shape.Params(),
		Position: obj.Position,
		RotationDeg: [3]float64{
			mgl64.RadToDeg(obj.Rotation.X()),
			mgl64.RadToDeg(obj.Rotation.Y()),
			mgl64.RadToDeg(obj.Rotation.Z()),
		},
		Scale:    obj.Scale,
		Tintable: obj.Tintable(),
	}
	if obj.Shape.Type != world.POINT_LIGHT {
		view.Color = fmt.Sprintf("#%06x", obj.Color)
	}
	return view
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
