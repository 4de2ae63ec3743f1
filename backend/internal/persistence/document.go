package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tidwall/jsonc"

	"room-editor/backend/internal/world"
)

const (
	// DocumentVersion версия формата файла сцены
	DocumentVersion = "1.0"

	// AutoSaveKey ключ слота автосохранения
	AutoSaveKey = "room-autosave"
)

// ErrInvalidDocument документ не удалось разобрать или он содержит недопустимые значения
var ErrInvalidDocument = errors.New("persistence: недопустимый документ сцены")

// Timestamp время сохранения. Читается как ISO-строка или число миллисекунд.
type Timestamp struct {
	time.Time
	Millis bool // записывать числом миллисекунд (формат автосохранения)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Millis {
		return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
	}
	return json.Marshal(t.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		*t = Timestamp{Time: parsed}
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*t = Timestamp{Time: time.UnixMilli(int64(ms)), Millis: true}
	return nil
}

// Vector координаты в виде {x, y, z}
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func vectorOf(v mgl64.Vec3) *Vector {
	return &Vector{X: v.X(), Y: v.Y(), Z: v.Z()}
}

func (v *Vector) vec3(def mgl64.Vec3) mgl64.Vec3 {
	if v == nil {
		return def
	}
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func (v *Vector) finite() bool {
	if v == nil {
		return true
	}
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Room размеры комнаты в документе
type Room struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// MaterialColors цвета поверхностей в виде hex-строк
type MaterialColors struct {
	Floor   string `json:"floor"`
	Wall    string `json:"wall"`
	Ceiling string `json:"ceiling"`
}

// Item мебель в плоском виде: без параметров геометрии и частей
type Item struct {
	UUID     string  `json:"uuid"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Position *Vector `json:"position"`
	Rotation *Vector `json:"rotation"`
	Scale    *Vector `json:"scale"`
	Color    string  `json:"color"`
}

// Document файл сцены: ручное сохранение, загрузка и автосохранение
type Document struct {
	Timestamp Timestamp       `json:"timestamp"`
	Version   string          `json:"version,omitempty"`
	Room      *Room           `json:"room,omitempty"`
	Materials *MaterialColors `json:"materials,omitempty"`
	Furniture []Item          `json:"furniture"`
}

// FormatColor записывает цвет как "#rrggbb"
func FormatColor(c uint32) string {
	return fmt.Sprintf("#%06x", c&0xffffff)
}

// ParseColor читает "#rrggbb", "rrggbb" или "#rgb"
func ParseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, fmt.Errorf("цвет %q: ожидается #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("цвет %q: %w", s, err)
	}
	return uint32(v), nil
}

// BuildDocument собирает документ из текущей сцены
func BuildDocument(scene *world.Scene, now time.Time, millis bool) *Document {
	bounds := scene.Bounds()
	materials := scene.Materials()

	doc := &Document{
		Timestamp: Timestamp{Time: now, Millis: millis},
		Room:      &Room{Width: bounds.Width, Depth: bounds.Depth, Height: bounds.Height},
		Materials: &MaterialColors{
			Floor:   FormatColor(materials.Floor),
			Wall:    FormatColor(materials.Wall),
			Ceiling: FormatColor(materials.Ceiling),
		},
		Furniture: make([]Item, 0, scene.Furniture.Len()),
	}
	if !millis {
		doc.Version = DocumentVersion
	}

	for _, obj := range scene.Furniture.All() {
		doc.Furniture = append(doc.Furniture, Item{
			UUID:     obj.ID,
			Name:     obj.Name,
			Type:     kindLabel(obj),
			Position: vectorOf(obj.Position),
			Rotation: vectorOf(obj.Rotation),
			Scale:    vectorOf(obj.Scale),
			Color:    FormatColor(obj.Color),
		})
	}
	return doc
}

// kindLabel: метка из UserData["type"], иначе вид объекта
func kindLabel(obj *world.SceneObject) string {
	if label, ok := obj.UserData["type"].(string); ok && label != "" {
		return label
	}
	if obj.Kind != "" {
		return string(obj.Kind)
	}
	return "unknown"
}

// Marshal сериализует документ с отступами
func (d *Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// ParseDocument разбирает документ. Допускаются комментарии и висячие
// запятые. Все значения проверяются до того, как документ применяется к сцене.
func ParseDocument(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: пустой документ", ErrInvalidDocument)
	}

	var doc Document
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate проверяет цвета и числа документа
func (d *Document) Validate() error {
	if d.Room != nil {
		for _, v := range []float64{d.Room.Width, d.Room.Depth, d.Room.Height} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%w: размер комнаты %v", ErrInvalidDocument, v)
			}
		}
	}
	if d.Materials != nil {
		for _, c := range []string{d.Materials.Floor, d.Materials.Wall, d.Materials.Ceiling} {
			if c == "" {
				continue
			}
			if _, err := ParseColor(c); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
			}
		}
	}
	for i, item := range d.Furniture {
		if item.Color != "" {
			if _, err := ParseColor(item.Color); err != nil {
				return fmt.Errorf("%w: мебель #%d: %v", ErrInvalidDocument, i, err)
			}
		}
		if !item.Position.finite() || !item.Rotation.finite() || !item.Scale.finite() {
			return fmt.Errorf("%w: мебель #%d: нечисловая трансформация", ErrInvalidDocument, i)
		}
	}
	return nil
}

// Apply применяет проверенный документ: перестраивает комнату, меняет цвета
// поверхностей и заменяет мебель коробками-заглушками 1x1x1, которые хранят
// исходный вид в UserData["type"]. Геометрия при этом не восстанавливается.
// Пустой, повторный или занятый элементом комнаты uuid заменяется новым ID.
func (d *Document) Apply(scene *world.Scene) {
	if d.Room != nil {
		current := scene.Bounds()
		pick := func(v, cur float64) float64 {
			if v > 0 {
				return v
			}
			return cur
		}
		scene.BuildRoom(pick(d.Room.Width, current.Width), pick(d.Room.Depth, current.Depth), pick(d.Room.Height, current.Height))
	}

	if d.Materials != nil {
		materials := scene.Materials()
		set := func(hex string, dst *uint32) {
			if c, err := ParseColor(hex); err == nil {
				*dst = c
			}
		}
		set(d.Materials.Floor, &materials.Floor)
		set(d.Materials.Wall, &materials.Wall)
		set(d.Materials.Ceiling, &materials.Ceiling)
		scene.SetMaterials(materials)
	}

	scene.Furniture.Clear()
	registry := scene.Registry()
	seen := make(map[string]bool, len(d.Furniture))
	for _, item := range d.Furniture {
		color := uint32(0xffffff)
		if c, err := ParseColor(item.Color); err == nil {
			color = c
		}

		// Каждый объект принадлежит одной коллекции под своим ID
		id := item.UUID
		if _, taken := scene.Assets.Get(id); id == "" || seen[id] || taken {
			id = registry.NewID()
		}
		seen[id] = true

		obj := registry.NewPlaceholder(id, item.Name, item.Type, color)
		obj.Position = item.Position.vec3(mgl64.Vec3{})
		obj.Rotation = item.Rotation.vec3(mgl64.Vec3{})
		obj.Scale = item.Scale.vec3(mgl64.Vec3{1, 1, 1})
		scene.Furniture.Add(obj)
	}
}

// FileName имя файла для скачивания: room-YYYY-MM-DD.json
func FileName(now time.Time) string {
	return fmt.Sprintf("room-%s.json", now.UTC().Format("2006-01-02"))
}
