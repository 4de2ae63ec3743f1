package world

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// RoomLimits допустимые размеры комнаты и отступы от стен
type RoomLimits struct {
	DefaultWidth  float64
	DefaultDepth  float64
	DefaultHeight float64

	MinWidth, MaxWidth   float64
	MinDepth, MaxDepth   float64
	MinHeight, MaxHeight float64

	Padding float64 // отступ от стен и потолка
	MinY    float64 // минимальная высота над полом
}

// SnapConfig настройки привязки к сетке
type SnapConfig struct {
	Enabled      bool
	Size         float64
	MinSize      float64
	MaxSize      float64
	RotationSnap float64 // шаг привязки поворота в градусах
}

// Palette цвета по умолчанию
type Palette struct {
	Floor   uint32
	Wall    uint32
	Ceiling uint32
	Door    uint32
	Window  uint32
	Box     uint32
	Sphere  uint32
	Chair   uint32
	Custom  uint32
	Fixture uint32
	Bulb    uint32
	Light   uint32
	Select  uint32 // emissive подсветки выбранного объекта
}

// FurnitureSizes размеры мебели по умолчанию
type FurnitureSizes struct {
	BoxWidth, BoxHeight, BoxDepth       float64
	SphereRadius                        float64
	ChairWidth, ChairHeight, ChairDepth float64
}

// AssetSizes размеры элементов комнаты
type AssetSizes struct {
	DoorWidth, DoorHeight, DoorThickness float64
	WindowWidth, WindowHeight            float64
	WindowOpacity                        float64
	FixtureRadius, FixtureHeight         float64
	BulbRadius                           float64
	LightIntensity                       float64
	LightRangeFactor                     float64 // дальность света = max(ширина, глубина) * фактор
}

// EditorConfig объединяет все настройки редактора
type EditorConfig struct {
	Room       RoomLimits
	Snap       SnapConfig
	Colors     Palette
	Furniture  FurnitureSizes
	Assets     AssetSizes
	MaxHistory int
}

var (
	editorConfig EditorConfig
	configMutex  sync.RWMutex
)

// Инициализация конфигурации по умолчанию
func init() {
	editorConfig = DefaultEditorConfig()
}

// DefaultEditorConfig возвращает настройки редактора по умолчанию
func DefaultEditorConfig() EditorConfig {
	return EditorConfig{
		Room: RoomLimits{
			DefaultWidth:  6,
			DefaultDepth:  5,
			DefaultHeight: 3,

			MinWidth: 2, MaxWidth: 12,
			MinDepth: 2, MaxDepth: 12,
			MinHeight: 2, MaxHeight: 6,

			Padding: 0.1,
			MinY:    0.1,
		},
		Snap: SnapConfig{
			Enabled:      true,
			Size:         0.25,
			MinSize:      0.05,
			MaxSize:      1.0,
			RotationSnap: 45,
		},
		Colors: Palette{
			Floor:   0x8b6b4b,
			Wall:    0xf0f0f0,
			Ceiling: 0xffffff,
			Door:    0x6d4c41,
			Window:  0x99caff,
			Box:     0x8aa7f2,
			Sphere:  0xf2a76b,
			Chair:   0x8b4513,
			Custom:  0x8aa7f2,
			Fixture: 0xffffff,
			Bulb:    0xffffe0,
			Light:   0xffffff,
			Select:  0x333333,
		},
		Furniture: FurnitureSizes{
			BoxWidth: 1, BoxHeight: 0.5, BoxDepth: 0.6,
			SphereRadius: 0.35,
			ChairWidth:   0.6, ChairHeight: 0.5, ChairDepth: 0.6,
		},
		Assets: AssetSizes{
			DoorWidth: 1, DoorHeight: 2, DoorThickness: 0.08,
			WindowWidth: 1.6, WindowHeight: 1,
			WindowOpacity: 0.45,
			FixtureRadius: 0.35, FixtureHeight: 0.1,
			BulbRadius:       0.12,
			LightIntensity:   0.9,
			LightRangeFactor: 3,
		},
		MaxHistory: 50,
	}
}

// GetEditorConfig возвращает текущую конфигурацию редактора
func GetEditorConfig() EditorConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return editorConfig
}

// SetEditorConfig устанавливает новую конфигурацию редактора
func SetEditorConfig(config EditorConfig) {
	configMutex.Lock()
	defer configMutex.Unlock()
	editorConfig = config
}

// GetRoomLimits возвращает только ограничения комнаты
func GetRoomLimits() RoomLimits {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return editorConfig.Room
}

// GetSnapConfig возвращает только настройки привязки
func GetSnapConfig() SnapConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return editorConfig.Snap
}

// GetPalette возвращает только цвета
func GetPalette() Palette {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return editorConfig.Colors
}

// RotationSnapStep шаг привязки поворота в радианах
func (s SnapConfig) RotationSnapStep() float64 {
	return mgl64.DegToRad(s.RotationSnap)
}
