package editing

import (
	"context"
	"io"

	"github.com/go-gl/mathgl/mgl64"

	"room-editor/backend/internal/core/domain/entity"
	"room-editor/backend/internal/history"
	"room-editor/backend/internal/selection"
	"room-editor/backend/internal/world"
)

// Transform новая трансформация выбранного объекта. Nil-поля не меняются.
type Transform struct {
	Position *mgl64.Vec3
	Rotation *mgl64.Vec3 // радианы
	Scale    *mgl64.Vec3
}

// CustomObjectRequest параметры пользовательского объекта
type CustomObjectRequest struct {
	Name   string
	Shape  string // box, sphere, cylinder, cone
	Params map[string]float64
	Color  string // "#rrggbb"; пустая строка означает цвет по умолчанию
}

// Observer получает обновления состояния сессии. Вызывается под блокировкой
// сессии и не должен обращаться к ней.
type Observer interface {
	SceneChanged(view *entity.SceneView)
	HistoryChanged(status history.Status)
	SelectionChanged(inspector *selection.Inspector, info selection.Info)
}

// EditorPort определяет операции сессии редактора комнаты
type EditorPort interface {
	// AddBox, AddSphere, AddChair добавляют мебель и выбирают ее
	AddBox() (string, error)
	AddSphere() (string, error)
	AddChair() (string, error)

	// CreateCustomObject создает объект с заданной геометрией
	CreateCustomObject(req CustomObjectRequest) (string, error)

	// AddDoor и AddWindow добавляют проемы в элементы комнаты
	AddDoor() (string, error)
	AddWindow() (string, error)

	// PickObject выбирает объект и прикрепляет к нему манипулятор
	PickObject(id string) error

	// ClickEmpty снимает выбор и скрывает манипулятор
	ClickEmpty()

	DeleteSelected() (bool, error)
	DeleteObject(id string) error
	DuplicateSelected() (string, error)
	ClearFurniture() error

	Rename(name string) error
	SetColor(color uint32) error

	// SetTransform применяет трансформацию во время перетаскивания без записи в историю
	SetTransform(t Transform) error

	// EndTransform завершает перетаскивание: привязка к сетке и запись в историю
	EndTransform() error

	// ApplyTransform применяет значения из панели свойств и записывает их в историю
	ApplyTransform(t Transform) error

	ResizeRoom(width, depth, height float64) (world.RoomBounds, error)
	SetMaterialColor(surface world.Surface, color uint32) error
	ApplyTexture(surface world.Surface, color uint32) error

	SetSnapping(enabled bool, step float64)
	SetRotationSnap(enabled bool)
	SetTransformMode(mode string) error

	Undo() (bool, error)
	Redo() (bool, error)

	ExportToFile(w io.Writer) (string, error)
	ImportFromFile(data []byte) error
	AutoSave(ctx context.Context) (bool, error)
	LoadAutoSave(ctx context.Context) error

	// View возвращает текущее состояние сцены
	View() *entity.SceneView
	HistoryStatus() history.Status
	Selection() (*selection.Inspector, selection.Info)

	// AddObserver регистрирует наблюдателя и возвращает функцию отписки
	AddObserver(o Observer) func()
}
