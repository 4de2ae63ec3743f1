package world

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"
)

// SampleSceneCreator расставляет демонстрационную мебель
type SampleSceneCreator struct {
	scene  *Scene
	logger *log.Logger
}

// NewSampleSceneCreator создает новый экземпляр SampleSceneCreator
func NewSampleSceneCreator(scene *Scene, logger *log.Logger) *SampleSceneCreator {
	if logger == nil {
		logger = log.Default()
	}
	return &SampleSceneCreator{scene: scene, logger: logger}
}

// CreateAll добавляет дверь, окно и небольшой набор мебели
func (c *SampleSceneCreator) CreateAll() {
	c.CreateOpenings()
	c.CreateFurniture()
}

// CreateOpenings добавляет дверь и окно к текущей комнате
func (c *SampleSceneCreator) CreateOpenings() {
	bounds := c.scene.Bounds()
	registry := c.scene.Registry()

	c.scene.Assets.Add(registry.NewDoor(bounds))
	c.scene.Assets.Add(registry.NewWindow(bounds))
}

// CreateFurniture расставляет стол из коробки, два стула и шар у стены
func (c *SampleSceneCreator) CreateFurniture() {
	registry := c.scene.Registry()
	bounds := c.scene.Bounds()

	table := registry.NewBox("Table")
	table.Position = mgl64.Vec3{0, table.Position.Y(), 0}

	left := registry.NewChair("Chair Left")
	left.Position = mgl64.Vec3{-0.9, 0, 0}
	left.Rotation = mgl64.Vec3{0, mgl64.DegToRad(90), 0}

	right := registry.NewChair("Chair Right")
	right.Position = mgl64.Vec3{0.9, 0, 0}
	right.Rotation = mgl64.Vec3{0, mgl64.DegToRad(-90), 0}

	ball := registry.NewSphere("Ball")
	ball.Position = mgl64.Vec3{bounds.Width / 2, ball.Position.Y(), -bounds.Depth / 2}

	for _, obj := range []*SceneObject{table, left, right, ball} {
		ClampInPlace(&obj.Position, bounds)
		c.scene.Furniture.Add(obj)
		c.logger.Printf("[World] Создан объект %s в координатах (%.2f, %.2f, %.2f)",
			obj.Name, obj.Position.X(), obj.Position.Y(), obj.Position.Z())
	}
}
