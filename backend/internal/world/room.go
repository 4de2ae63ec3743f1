package world

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// RoomBounds размеры текущей комнаты. Заменяются целиком при каждой перестройке.
type RoomBounds struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// Volume объем комнаты в кубических метрах
func (b RoomBounds) Volume() float64 {
	return b.Width * b.Depth * b.Height
}

// DefaultRoomBounds возвращает комнату 6 x 5 x 3
func DefaultRoomBounds() RoomBounds {
	limits := GetRoomLimits()
	return RoomBounds{Width: limits.DefaultWidth, Depth: limits.DefaultDepth, Height: limits.DefaultHeight}
}

// SaturateRoom приводит запрошенные размеры к допустимым границам
func SaturateRoom(width, depth, height float64) RoomBounds {
	limits := GetRoomLimits()
	sat := func(v, def, lo, hi float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = def
		}
		return mgl64.Clamp(v, lo, hi)
	}
	return RoomBounds{
		Width:  sat(width, limits.DefaultWidth, limits.MinWidth, limits.MaxWidth),
		Depth:  sat(depth, limits.DefaultDepth, limits.MinDepth, limits.MaxDepth),
		Height: sat(height, limits.DefaultHeight, limits.MinHeight, limits.MaxHeight),
	}
}

// ClampToRoom удерживает позицию внутри комнаты с учетом отступа.
// Функция идемпотентна: повторный вызов не меняет результат.
func ClampToRoom(pos mgl64.Vec3, b RoomBounds) mgl64.Vec3 {
	limits := GetRoomLimits()
	halfW := b.Width/2 - limits.Padding
	halfD := b.Depth/2 - limits.Padding
	maxY := b.Height - limits.Padding

	return mgl64.Vec3{
		mgl64.Clamp(pos.X(), -halfW, halfW),
		mgl64.Clamp(pos.Y(), limits.MinY, maxY),
		mgl64.Clamp(pos.Z(), -halfD, halfD),
	}
}

// ClampInPlace ограничивает позицию по указателю
func ClampInPlace(pos *mgl64.Vec3, b RoomBounds) {
	*pos = ClampToRoom(*pos, b)
}

// NormalizeSnapStep приводит шаг сетки к диапазону [MinSize, MaxSize]
func NormalizeSnapStep(step float64) float64 {
	snap := GetSnapConfig()
	if !(step > 0) {
		return snap.Size
	}
	return mgl64.Clamp(step, snap.MinSize, snap.MaxSize)
}

// SnapToGrid округляет каждую ось до ближайшего кратного шагу и ограничивает комнатой
func SnapToGrid(pos mgl64.Vec3, step float64, b RoomBounds) mgl64.Vec3 {
	step = NormalizeSnapStep(step)
	snapped := mgl64.Vec3{
		roundToStep(pos.X(), step),
		roundToStep(pos.Y(), step),
		roundToStep(pos.Z(), step),
	}
	return ClampToRoom(snapped, b)
}

// roundToStep округляет половину вверх, как это делает интерфейс
func roundToStep(v, step float64) float64 {
	return math.Floor(v/step+0.5) * step
}

// SnapRotation квантует углы Эйлера по шагу в радианах
func SnapRotation(rot mgl64.Vec3, step float64) mgl64.Vec3 {
	if !(step > 0) {
		return rot
	}
	return mgl64.Vec3{
		roundToStep(rot.X(), step),
		roundToStep(rot.Y(), step),
		roundToStep(rot.Z(), step),
	}
}

// Surface поверхность комнаты с настраиваемым цветом
type Surface string

const (
	SurfaceFloor   Surface = "floor"
	SurfaceWall    Surface = "wall"
	SurfaceCeiling Surface = "ceiling"
)

// Materials цвета поверхностей комнаты
type Materials struct {
	Floor   uint32 `json:"floor"`
	Wall    uint32 `json:"wall"`
	Ceiling uint32 `json:"ceiling"`
}

// DefaultMaterials возвращает цвета поверхностей по умолчанию
func DefaultMaterials() Materials {
	palette := GetPalette()
	return Materials{Floor: palette.Floor, Wall: palette.Wall, Ceiling: palette.Ceiling}
}

// Scene живой граф сцены: комната, мебель и элементы комнаты
type Scene struct {
	Furniture *Collection
	Assets    *Collection

	registry  *Registry
	bounds    RoomBounds
	materials Materials
	mu        sync.RWMutex
	logger    *log.Logger
}

// NewScene создает сцену с комнатой по умолчанию
func NewScene(registry *Registry, logger *log.Logger) *Scene {
	if logger == nil {
		logger = log.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}

	s := &Scene{
		Furniture: NewCollection(),
		Assets:    NewCollection(),
		registry:  registry,
		materials: DefaultMaterials(),
		logger:    logger,
	}
	def := DefaultRoomBounds()
	s.BuildRoom(def.Width, def.Depth, def.Height)
	return s
}

// Registry возвращает реестр геометрии сцены
func (s *Scene) Registry() *Registry {
	return s.registry
}

// BuildRoom перестраивает комнату: заменяет границы, пересоздает элементы
// комнаты и возвращает всю мебель внутрь новых границ.
func (s *Scene) BuildRoom(width, depth, height float64) RoomBounds {
	bounds := SaturateRoom(width, depth, height)

	s.mu.Lock()
	s.bounds = bounds
	s.mu.Unlock()

	s.Assets.Clear()
	for _, asset := range s.registry.RoomAssets(bounds) {
		s.Assets.Add(asset)
	}

	for _, obj := range s.Furniture.All() {
		ClampInPlace(&obj.Position, bounds)
	}

	s.logger.Printf("[Room] Комната перестроена: %.2f x %.2f x %.2f (объем %.2f м³)",
		bounds.Width, bounds.Depth, bounds.Height, bounds.Volume())
	return bounds
}

func (s *Scene) Bounds() RoomBounds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bounds
}

func (s *Scene) Materials() Materials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.materials
}

// SetMaterials заменяет цвета всех поверхностей
func (s *Scene) SetMaterials(m Materials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials = m
}

// SetMaterial меняет цвет одной поверхности
func (s *Scene) SetMaterial(surface Surface, color uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch surface {
	case SurfaceFloor:
		s.materials.Floor = color
	case SurfaceWall:
		s.materials.Wall = color
	case SurfaceCeiling:
		s.materials.Ceiling = color
	default:
		return fmt.Errorf("неизвестная поверхность: %q", surface)
	}
	return nil
}

// ClampToRoom ограничивает позицию текущими границами сцены
func (s *Scene) ClampToRoom(pos mgl64.Vec3) mgl64.Vec3 {
	return ClampToRoom(pos, s.Bounds())
}

// Find ищет объект в мебели, затем в элементах комнаты
func (s *Scene) Find(id string) (*SceneObject, bool) {
	if id == "" {
		return nil, false
	}
	if obj, ok := s.Furniture.Get(id); ok {
		return obj, true
	}
	return s.Assets.Get(id)
}

// Clear удаляет все объекты из обеих коллекций
func (s *Scene) Clear() {
	s.Furniture.Clear()
	s.Assets.Clear()
}
