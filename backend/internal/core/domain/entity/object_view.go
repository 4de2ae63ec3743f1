package entity

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"room-editor/backend/internal/world"
)

// Vector3 представляет трехмерный вектор для клиента
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func vectorOf(v mgl64.Vec3) Vector3 {
	return Vector3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// PartView часть составного объекта для отрисовки
type PartView struct {
	Geometry string             `json:"geometry"`
	Params   map[string]float64 `json:"params"`
	Offset   Vector3            `json:"offset"`
	Rotation Vector3            `json:"rotation"`
}

// ObjectView представление объекта сцены для клиента
type ObjectView struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Kind       world.Kind         `json:"kind"`
	Geometry   string             `json:"geometry"`
	Params     map[string]float64 `json:"params,omitempty"`
	Color      string             `json:"color"`
	Emissive   string             `json:"emissive,omitempty"`
	Position   Vector3            `json:"position"`
	Rotation   Vector3            `json:"rotation"`
	Scale      Vector3            `json:"scale"`
	Properties map[string]any     `json:"properties,omitempty"` // UserData объекта
	Parts      []PartView         `json:"parts,omitempty"`
}

// NewObjectView создает представление живого объекта
func NewObjectView(obj *world.SceneObject) ObjectView {
	view := ObjectView{
		ID:       obj.ID,
		Name:     obj.Name,
		Kind:     obj.Kind,
		Geometry: world.UNKNOWN.String(),
		Color:    hexColor(obj.Color),
		Position: vectorOf(obj.Position),
		Rotation: vectorOf(obj.Rotation),
		Scale:    vectorOf(obj.Scale),
	}
	if obj.Shape != nil {
		view.Geometry = obj.Shape.Type.String()
		view.Params = obj.Shape.Params()
	}
	if obj.Emissive != 0 {
		view.Emissive = hexColor(obj.Emissive)
	}
	if len(obj.UserData) > 0 {
		view.Properties = make(map[string]any, len(obj.UserData))
		for k, v := range obj.UserData {
			view.Properties[k] = v
		}
	}
	for _, part := range obj.Parts {
		view.Parts = append(view.Parts, PartView{
			Geometry: part.Shape.Type.String(),
			Params:   part.Shape.Params(),
			Offset:   vectorOf(part.Offset),
			Rotation: vectorOf(part.Rotation),
		})
	}
	return view
}

func hexColor(c uint32) string {
	return fmt.Sprintf("#%06x", c&0xffffff)
}
