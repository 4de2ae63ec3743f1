package entity

import (
	"room-editor/backend/internal/world"
)

// MaterialsView цвета поверхностей комнаты
type MaterialsView struct {
	Floor   string `json:"floor"`
	Wall    string `json:"wall"`
	Ceiling string `json:"ceiling"`
}

// SnapView настройки привязки
type SnapView struct {
	Enabled         bool    `json:"enabled"`
	Step            float64 `json:"step"`
	RotationEnabled bool    `json:"rotationEnabled"`
}

// ControlsView состояние манипулятора трансформаций
type ControlsView struct {
	Attached string `json:"attached,omitempty"`
	Visible  bool   `json:"visible"`
	Mode     string `json:"mode"`
}

// SceneView полное состояние сцены, отправляемое клиенту
type SceneView struct {
	Room      world.RoomBounds `json:"room"`
	Volume    float64          `json:"volume"`
	Materials MaterialsView    `json:"materials"`
	Furniture []ObjectView     `json:"furniture"`
	Assets    []ObjectView     `json:"assets"`
	Selected  string           `json:"selected,omitempty"`
	Snap      SnapView         `json:"snap"`
	Controls  ControlsView     `json:"controls"`
}

// NewSceneView собирает представление комнаты и обеих коллекций
func NewSceneView(scene *world.Scene) *SceneView {
	bounds := scene.Bounds()
	materials := scene.Materials()

	view := &SceneView{
		Room:   bounds,
		Volume: bounds.Volume(),
		Materials: MaterialsView{
			Floor:   hexColor(materials.Floor),
			Wall:    hexColor(materials.Wall),
			Ceiling: hexColor(materials.Ceiling),
		},
		Furniture: collectionView(scene.Furniture),
		Assets:    collectionView(scene.Assets),
	}
	return view
}

func collectionView(c *world.Collection) []ObjectView {
	objects := c.All()
	views := make([]ObjectView, 0, len(objects))
	for _, obj := range objects {
		views = append(views, NewObjectView(obj))
	}
	return views
}
