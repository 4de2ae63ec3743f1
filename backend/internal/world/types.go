package world

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jinzhu/copier"
)

// Kind тег вида объекта сцены
type Kind string

const (
	KindBox     Kind = "box"
	KindSphere  Kind = "sphere"
	KindChair   Kind = "chair"
	KindCustom  Kind = "custom"
	KindDoor    Kind = "door"
	KindWindow  Kind = "window"
	KindFixture Kind = "fixture"
	KindBulb    Kind = "bulb"
	KindLight   Kind = "light"
)

// IsLight сообщает, что запись описывает источник света, а не меш
func (k Kind) IsLight() bool {
	return strings.Contains(strings.ToLower(string(k)), "light")
}

// SceneObject живой объект сцены, принадлежащий ровно одной коллекции
type SceneObject struct {
	ID       string
	Name     string
	Kind     Kind
	Shape    *ShapeDescriptor
	Color    uint32
	Emissive uint32
	Position mgl64.Vec3
	Rotation mgl64.Vec3 // углы Эйлера в радианах
	Scale    mgl64.Vec3
	UserData map[string]any

	// Части составного объекта (стул). Не выбираются и не сохраняются.
	Parts []*Part
}

// Part внутренняя часть составного объекта
type Part struct {
	Shape    *ShapeDescriptor
	Offset   mgl64.Vec3
	Rotation mgl64.Vec3
}

// Tintable сообщает, можно ли подсветить объект через emissive
func (o *SceneObject) Tintable() bool {
	if o.Shape == nil {
		return false
	}
	switch o.Shape.Type {
	case GROUP, POINT_LIGHT, UNKNOWN:
		return false
	default:
		return true
	}
}

// Clone делает глубокую копию объекта, включая UserData и части
func (o *SceneObject) Clone() (*SceneObject, error) {
	clone := &SceneObject{}
	if err := copier.CopyWithOption(clone, o, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("не удалось скопировать объект %s: %w", o.ID, err)
	}
	return clone, nil
}

// ShapeDescriptor размеченное объединение параметров геометрии
type ShapeDescriptor struct {
	Type     ShapeType          `json:"type"`
	Box      *BoxData           `json:"box,omitempty"`
	Sphere   *SphereData        `json:"sphere,omitempty"`
	Cylinder *CylinderData      `json:"cylinder,omitempty"`
	Cone     *ConeData          `json:"cone,omitempty"`
	Plane    *PlaneData         `json:"plane,omitempty"`
	Light    *PointLightData    `json:"light,omitempty"`
	Raw      map[string]float64 `json:"raw,omitempty"`
}

type ShapeType int

const (
	BOX ShapeType = iota
	SPHERE
	CYLINDER
	CONE
	PLANE
	GROUP
	POINT_LIGHT
	UNKNOWN
)

var shapeNames = map[ShapeType]string{
	BOX:         "box",
	SPHERE:      "sphere",
	CYLINDER:    "cylinder",
	CONE:        "cone",
	PLANE:       "plane",
	GROUP:       "group",
	POINT_LIGHT: "point_light",
	UNKNOWN:     "unknown",
}

func (t ShapeType) String() string {
	if name, ok := shapeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("shape(%d)", int(t))
}

type BoxData struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

type SphereData struct {
	Radius float64 `json:"radius"`
}

type CylinderData struct {
	RadiusTop    float64 `json:"radiusTop"`
	RadiusBottom float64 `json:"radiusBottom"`
	Height       float64 `json:"height"`
}

type ConeData struct {
	Radius float64 `json:"radius"`
	Height float64 `json:"height"`
}

type PlaneData struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type PointLightData struct {
	Color     uint32  `json:"color"`
	Intensity float64 `json:"intensity"`
	Range     float64 `json:"range"`
}

// NewBoxShape создает описание коробки
func NewBoxShape(width, height, depth float64) *ShapeDescriptor {
	return &ShapeDescriptor{Type: BOX, Box: &BoxData{Width: width, Height: height, Depth: depth}}
}

// NewSphereShape создает описание сферы
func NewSphereShape(radius float64) *ShapeDescriptor {
	return &ShapeDescriptor{Type: SPHERE, Sphere: &SphereData{Radius: radius}}
}

// NewCylinderShape создает описание цилиндра
func NewCylinderShape(radiusTop, radiusBottom, height float64) *ShapeDescriptor {
	return &ShapeDescriptor{Type: CYLINDER, Cylinder: &CylinderData{
		RadiusTop:    radiusTop,
		RadiusBottom: radiusBottom,
		Height:       height,
	}}
}

// NewConeShape создает описание конуса
func NewConeShape(radius, height float64) *ShapeDescriptor {
	return &ShapeDescriptor{Type: CONE, Cone: &ConeData{Radius: radius, Height: height}}
}

// NewPlaneShape создает описание плоскости
func NewPlaneShape(width, height float64) *ShapeDescriptor {
	return &ShapeDescriptor{Type: PLANE, Plane: &PlaneData{Width: width, Height: height}}
}

// NewPointLightShape создает описание точечного источника света
func NewPointLightShape(color uint32, intensity, lightRange float64) *ShapeDescriptor {
	return &ShapeDescriptor{Type: POINT_LIGHT, Light: &PointLightData{
		Color:     color,
		Intensity: intensity,
		Range:     lightRange,
	}}
}

// NewUnknownShape сохраняет сырые параметры геометрии из старых записей
func NewUnknownShape(raw map[string]float64) *ShapeDescriptor {
	return &ShapeDescriptor{Type: UNKNOWN, Raw: raw}
}

// Height возвращает высоту геометрии, если она у нее есть
func (s *ShapeDescriptor) Height() (float64, bool) {
	if s == nil {
		return 0, false
	}
	switch s.Type {
	case BOX:
		return s.Box.Height, true
	case SPHERE:
		return s.Sphere.Radius * 2, true
	case CYLINDER:
		return s.Cylinder.Height, true
	case CONE:
		return s.Cone.Height, true
	case PLANE:
		return s.Plane.Height, true
	}
	return 0, false
}

// Params возвращает параметры геометрии в плоском виде
func (s *ShapeDescriptor) Params() map[string]float64 {
	params := make(map[string]float64)
	if s == nil {
		return params
	}
	switch s.Type {
	case BOX:
		params["width"] = s.Box.Width
		params["height"] = s.Box.Height
		params["depth"] = s.Box.Depth
	case SPHERE:
		params["radius"] = s.Sphere.Radius
	case CYLINDER:
		params["radiusTop"] = s.Cylinder.RadiusTop
		params["radiusBottom"] = s.Cylinder.RadiusBottom
		params["height"] = s.Cylinder.Height
	case CONE:
		params["radius"] = s.Cone.Radius
		params["height"] = s.Cone.Height
	case PLANE:
		params["width"] = s.Plane.Width
		params["height"] = s.Plane.Height
	case POINT_LIGHT:
		params["intensity"] = s.Light.Intensity
		params["range"] = s.Light.Range
	case UNKNOWN:
		for k, v := range s.Raw {
			params[k] = v
		}
	}
	return params
}

// Validate проверяет, что вариант заполнен и размеры положительны
func (s *ShapeDescriptor) Validate() error {
	if s == nil {
		return fmt.Errorf("пустое описание геометрии")
	}
	positive := func(vals ...float64) error {
		for _, v := range vals {
			if !(v > 0) {
				return fmt.Errorf("недопустимый размер %v для %s", v, s.Type)
			}
		}
		return nil
	}
	switch s.Type {
	case BOX:
		if s.Box == nil {
			break
		}
		return positive(s.Box.Width, s.Box.Height, s.Box.Depth)
	case SPHERE:
		if s.Sphere == nil {
			break
		}
		return positive(s.Sphere.Radius)
	case CYLINDER:
		if s.Cylinder == nil {
			break
		}
		if s.Cylinder.RadiusTop < 0 || s.Cylinder.RadiusBottom < 0 {
			return fmt.Errorf("отрицательный радиус цилиндра")
		}
		return positive(s.Cylinder.Height)
	case CONE:
		if s.Cone == nil {
			break
		}
		return positive(s.Cone.Radius, s.Cone.Height)
	case PLANE:
		if s.Plane == nil {
			break
		}
		return positive(s.Plane.Width, s.Plane.Height)
	case POINT_LIGHT:
		if s.Light == nil {
			break
		}
		return nil
	case GROUP, UNKNOWN:
		return nil
	default:
		return fmt.Errorf("неизвестный тип геометрии: %d", s.Type)
	}
	return fmt.Errorf("не заполнены параметры для %s", s.Type)
}
