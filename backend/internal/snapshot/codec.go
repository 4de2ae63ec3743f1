package snapshot

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"room-editor/backend/internal/world"
)

// ErrEmptyEntry возвращается при попытке восстановить пустую запись
var ErrEmptyEntry = errors.New("snapshot: пустая запись истории")

// Record сериализованное состояние одного объекта сцены.
// Части составных объектов не записываются: они восстанавливаются по виду.
type Record struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Kind     world.Kind             `json:"kind"`
	Shape    *world.ShapeDescriptor `json:"shape,omitempty"`
	Color    uint32                 `json:"color"`
	Position mgl64.Vec3             `json:"position"`
	Rotation mgl64.Vec3             `json:"rotation"`
	Scale    mgl64.Vec3             `json:"scale"`
	UserData map[string]any         `json:"userData,omitempty"`
}

// State полное состояние сцены на момент снимка
type State struct {
	Room      world.RoomBounds `json:"room"`
	Materials world.Materials  `json:"materials"`
	Furniture []Record         `json:"furniture"`
	Assets    []Record         `json:"assets"`
}

// Entry неизменяемая запись истории. Данные хранятся сжатыми и не
// разделяют память с живыми объектами сцены.
type Entry struct {
	Description string
	Timestamp   time.Time
	Digest      Digest
	Furniture   int
	Assets      int

	payload []byte
	rawSize int
}

// Size размер сжатых данных записи в байтах
func (e *Entry) Size() int {
	return len(e.payload)
}

// State распаковывает состояние записи
func (e *Entry) State() (*State, error) {
	if e == nil || len(e.payload) == 0 {
		return nil, ErrEmptyEntry
	}
	return decodeState(e.payload, e.rawSize)
}

// Codec снимает и восстанавливает состояние сцены
type Codec struct {
	now    func() time.Time
	logger *log.Logger
}

// NewCodec создает новый кодек снимков
func NewCodec(logger *log.Logger) *Codec {
	if logger == nil {
		logger = log.Default()
	}
	return &Codec{now: time.Now, logger: logger}
}

func recordOf(obj *world.SceneObject) Record {
	return Record{
		ID:       obj.ID,
		Name:     obj.Name,
		Kind:     obj.Kind,
		Shape:    obj.Shape,
		Color:    obj.Color,
		Position: obj.Position,
		Rotation: obj.Rotation,
		Scale:    obj.Scale,
		UserData: obj.UserData,
	}
}

// CaptureState собирает состояние сцены без кодирования.
// Записи ссылаются на живые данные и должны быть закодированы до следующей правки.
func CaptureState(scene *world.Scene) *State {
	state := &State{
		Room:      scene.Bounds(),
		Materials: scene.Materials(),
	}
	for _, obj := range scene.Furniture.All() {
		state.Furniture = append(state.Furniture, recordOf(obj))
	}
	for _, obj := range scene.Assets.All() {
		state.Assets = append(state.Assets, recordOf(obj))
	}
	return state
}

// Capture снимает полное состояние сцены в новую запись истории
func (c *Codec) Capture(scene *world.Scene, description string) (*Entry, error) {
	return c.Encode(CaptureState(scene), description)
}

// Encode упаковывает состояние в запись истории
func (c *Codec) Encode(state *State, description string) (*Entry, error) {
	if description == "" {
		description = "Action"
	}

	payload, digest, rawSize, err := encodeState(state)
	if err != nil {
		return nil, err
	}

	return &Entry{
		Description: description,
		Timestamp:   c.now(),
		Digest:      digest,
		Furniture:   len(state.Furniture),
		Assets:      len(state.Assets),
		payload:     payload,
		rawSize:     rawSize,
	}, nil
}

// Restore заменяет содержимое сцены состоянием записи. Записи с
// неизвестной геометрией пропускаются; возвращается их количество.
func (c *Codec) Restore(entry *Entry, scene *world.Scene) (int, error) {
	state, err := entry.State()
	if err != nil {
		return 0, fmt.Errorf("восстановление %q: %w", entry.safeDescription(), err)
	}
	return c.Apply(state, scene), nil
}

// Apply перестраивает сцену по уже декодированному состоянию
func (c *Codec) Apply(state *State, scene *world.Scene) int {
	if state.Room.Width > 0 && state.Room.Depth > 0 && state.Room.Height > 0 {
		scene.BuildRoom(state.Room.Width, state.Room.Depth, state.Room.Height)
	}
	if state.Materials != (world.Materials{}) {
		scene.SetMaterials(state.Materials)
	}
	scene.Clear()

	registry := scene.Registry()
	skipped := 0
	rebuild := func(rec Record, into *world.Collection) {
		obj, ok := registry.Construct(rec.ID, rec.Name, rec.Kind, rec.Shape, rec.Color)
		if !ok {
			skipped++
			return
		}
		obj.Position = rec.Position
		obj.Rotation = rec.Rotation
		obj.Scale = rec.Scale
		if obj.Scale == (mgl64.Vec3{}) {
			obj.Scale = mgl64.Vec3{1, 1, 1}
		}
		if rec.UserData != nil {
			obj.UserData = rec.UserData
		}
		into.Add(obj)
	}

	for _, rec := range state.Furniture {
		rebuild(rec, scene.Furniture)
	}
	for _, rec := range state.Assets {
		rebuild(rec, scene.Assets)
	}

	if skipped > 0 {
		c.logger.Printf("[Snapshot] Пропущено записей с неизвестной геометрией: %d", skipped)
	}
	return skipped
}

func (e *Entry) safeDescription() string {
	if e == nil {
		return ""
	}
	return e.Description
}
