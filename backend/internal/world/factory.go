package world

import (
	"fmt"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Registry реестр геометрии: знает, как построить объект каждого вида
type Registry struct {
	newID  func() string
	logger *log.Logger
}

// NewRegistry создает реестр, выдающий UUID в качестве идентификаторов
func NewRegistry() *Registry {
	return NewRegistryWithIDs(uuid.NewString, nil)
}

// NewRegistryWithIDs создает реестр с собственным генератором идентификаторов
func NewRegistryWithIDs(newID func() string, logger *log.Logger) *Registry {
	if newID == nil {
		newID = uuid.NewString
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{newID: newID, logger: logger}
}

// NewID выдает новый идентификатор объекта
func (r *Registry) NewID() string {
	return r.newID()
}

func newObject(id, name string, kind Kind, shape *ShapeDescriptor, color uint32) *SceneObject {
	return &SceneObject{
		ID:       id,
		Name:     name,
		Kind:     kind,
		Shape:    shape,
		Color:    color,
		Scale:    mgl64.Vec3{1, 1, 1},
		UserData: make(map[string]any),
	}
}

// NewBox создает коробку стандартного размера, стоящую на полу
func (r *Registry) NewBox(name string) *SceneObject {
	cfg := GetEditorConfig()
	size := cfg.Furniture
	obj := newObject(r.newID(), name, KindBox,
		NewBoxShape(size.BoxWidth, size.BoxHeight, size.BoxDepth), cfg.Colors.Box)
	obj.Position = mgl64.Vec3{0, size.BoxHeight / 2, 0}
	return obj
}

// NewSphere создает сферу стандартного радиуса, касающуюся пола
func (r *Registry) NewSphere(name string) *SceneObject {
	cfg := GetEditorConfig()
	obj := newObject(r.newID(), name, KindSphere,
		NewSphereShape(cfg.Furniture.SphereRadius), cfg.Colors.Sphere)
	obj.Position = mgl64.Vec3{0, cfg.Furniture.SphereRadius, 0}
	return obj
}

// NewChair создает составной стул
func (r *Registry) NewChair(name string) *SceneObject {
	cfg := GetEditorConfig()
	obj := newObject(r.newID(), name, KindChair, &ShapeDescriptor{Type: GROUP}, cfg.Colors.Chair)
	obj.Parts = chairParts()
	return obj
}

// chairParts строит сиденье, спинку и четыре ножки по размерам стула
func chairParts() []*Part {
	size := GetEditorConfig().Furniture
	w, d := size.ChairWidth, size.ChairDepth

	parts := make([]*Part, 0, 6)
	for i := 0; i < 4; i++ {
		x := -w/2 + 0.05
		if i%2 == 1 {
			x = w/2 - 0.05
		}
		z := -d/2 + 0.05
		if i < 2 {
			z = d/2 - 0.05
		}
		parts = append(parts, &Part{
			Shape:  NewCylinderShape(0.02, 0.02, 0.5),
			Offset: mgl64.Vec3{x, 0.25, z},
		})
	}
	parts = append(parts,
		&Part{Shape: NewBoxShape(w, 0.05, d), Offset: mgl64.Vec3{0, 0.5, 0}},
		&Part{Shape: NewBoxShape(w, 0.4, 0.05), Offset: mgl64.Vec3{0, 0.7, d/2 + 0.025}},
	)
	return parts
}

// NewCustom создает объект пользовательской формы: box, sphere, cylinder или cone.
// Отсутствующие параметры заменяются значениями по умолчанию.
func (r *Registry) NewCustom(name, shapeKind string, params map[string]float64, color uint32) (*SceneObject, error) {
	if name == "" {
		name = "Custom Object"
	}
	param := func(key string, def float64) float64 {
		if v, ok := params[key]; ok && v > 0 {
			return v
		}
		return def
	}

	var shape *ShapeDescriptor
	switch shapeKind {
	case "box":
		shape = NewBoxShape(param("width", 1), param("height", 1), param("depth", 1))
	case "sphere":
		shape = NewSphereShape(param("radius", 0.5))
	case "cylinder":
		radius := param("radius", 0.5)
		shape = NewCylinderShape(radius, radius, param("height", 1))
	case "cone":
		shape = NewConeShape(param("radius", 0.5), param("height", 1))
	default:
		return nil, fmt.Errorf("неподдерживаемый тип пользовательского объекта: %s", shapeKind)
	}

	obj := newObject(r.newID(), name, KindCustom, shape, color)
	y := 0.5
	if shape.Type != SPHERE {
		if h, ok := shape.Height(); ok {
			y = h / 2
		}
	}
	obj.Position = mgl64.Vec3{0, y, 0}
	return obj, nil
}

// NewPlaceholder создает коробку 1x1x1, хранящую исходный вид в UserData["type"]
func (r *Registry) NewPlaceholder(id, name, label string, color uint32) *SceneObject {
	if id == "" {
		id = r.newID()
	}
	obj := newObject(id, name, KindBox, NewBoxShape(1, 1, 1), color)
	obj.UserData["type"] = label
	return obj
}

// RoomAssets строит потолочный светильник, лампу и точечный свет для комнаты
func (r *Registry) RoomAssets(b RoomBounds) []*SceneObject {
	cfg := GetEditorConfig()
	assets := cfg.Assets

	fixture := newObject(r.newID(), "Fixture", KindFixture,
		NewCylinderShape(assets.FixtureRadius, assets.FixtureRadius, assets.FixtureHeight), cfg.Colors.Fixture)
	fixture.Position = mgl64.Vec3{0, b.Height - 0.05, 0}
	fixture.Rotation = mgl64.Vec3{math.Pi / 2, 0, 0}

	bulb := newObject(r.newID(), "Bulb", KindBulb, NewSphereShape(assets.BulbRadius), cfg.Colors.Bulb)
	bulb.Position = mgl64.Vec3{0, b.Height - 0.18, 0}

	lightRange := math.Max(b.Width, b.Depth) * assets.LightRangeFactor
	light := newObject(r.newID(), "Light", KindLight,
		NewPointLightShape(cfg.Colors.Light, assets.LightIntensity, lightRange), cfg.Colors.Light)
	light.Position = bulb.Position

	return []*SceneObject{fixture, bulb, light}
}

// NewDoor создает дверь у передней стены
func (r *Registry) NewDoor(b RoomBounds) *SceneObject {
	cfg := GetEditorConfig()
	door := cfg.Assets
	obj := newObject(r.newID(), "Door", KindDoor,
		NewBoxShape(door.DoorWidth, door.DoorHeight, door.DoorThickness), cfg.Colors.Door)
	obj.Position = mgl64.Vec3{0, door.DoorHeight / 2, b.Depth/2 - door.DoorThickness/2 - 0.01}
	obj.UserData["wall"] = "front"
	return obj
}

// NewWindow создает окно на правой стене
func (r *Registry) NewWindow(b RoomBounds) *SceneObject {
	cfg := GetEditorConfig()
	window := cfg.Assets
	obj := newObject(r.newID(), "Window", KindWindow,
		NewPlaneShape(window.WindowWidth, window.WindowHeight), cfg.Colors.Window)
	obj.Position = mgl64.Vec3{b.Width/2 - window.WindowWidth/2 - 0.1, b.Height * 0.65, -b.Depth / 4}
	obj.Rotation = mgl64.Vec3{0, math.Pi / 2, 0}
	obj.UserData["wall"] = "right"
	obj.UserData["opacity"] = window.WindowOpacity
	return obj
}

// Construct восстанавливает объект по виду и геометрии. Возвращает false,
// если геометрия не подходит ни под один известный конструктор.
func (r *Registry) Construct(id, name string, kind Kind, shape *ShapeDescriptor, color uint32) (*SceneObject, bool) {
	if id == "" {
		id = r.newID()
	}

	if kind.IsLight() {
		light := shape
		if light == nil || light.Type != POINT_LIGHT || light.Light == nil {
			light = NewPointLightShape(0xffffff, GetEditorConfig().Assets.LightIntensity, 0)
		}
		if name == "" {
			name = "Light"
		}
		return newObject(id, name, kind, light, color), true
	}

	resolved, ok := r.resolveShape(kind, shape)
	if !ok {
		r.logger.Printf("[Registry] Пропущена запись %s (%s): неизвестная геометрия", id, kind)
		return nil, false
	}

	obj := newObject(id, name, kind, resolved, color)
	if resolved.Type == GROUP {
		obj.Parts = chairParts()
	}
	return obj, true
}

// resolveShape проверяет вариант геометрии; для UNKNOWN подбирает конструктор
// по сырым параметрам так же, как это делали старые сохранения.
func (r *Registry) resolveShape(kind Kind, shape *ShapeDescriptor) (*ShapeDescriptor, bool) {
	if shape == nil {
		if kind == KindChair {
			return &ShapeDescriptor{Type: GROUP}, true
		}
		return nil, false
	}

	switch shape.Type {
	case BOX, SPHERE, CYLINDER, CONE, PLANE:
		if err := shape.Validate(); err != nil {
			return nil, false
		}
		return shape, true
	case GROUP:
		if kind != KindChair {
			return nil, false
		}
		return shape, true
	case POINT_LIGHT:
		return shape, shape.Light != nil
	case UNKNOWN:
		return inferShape(shape.Raw)
	default:
		return nil, false
	}
}

// inferShape: width+height+depth дает коробку, radius сферу,
// radiusTop+radiusBottom+height цилиндр. Остальное отбрасывается.
func inferShape(raw map[string]float64) (*ShapeDescriptor, bool) {
	has := func(key string) bool {
		v, ok := raw[key]
		return ok && v != 0
	}
	_, hasTop := raw["radiusTop"]
	_, hasBottom := raw["radiusBottom"]

	switch {
	case has("width") && has("height") && has("depth"):
		return NewBoxShape(raw["width"], raw["height"], raw["depth"]), true
	case has("radius"):
		return NewSphereShape(raw["radius"]), true
	case hasTop && hasBottom && has("height"):
		return NewCylinderShape(raw["radiusTop"], raw["radiusBottom"], raw["height"]), true
	}
	return nil, false
}
