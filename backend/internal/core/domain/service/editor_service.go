package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"room-editor/backend/internal/core/domain/entity"
	"room-editor/backend/internal/core/port/in/editing"
	"room-editor/backend/internal/history"
	"room-editor/backend/internal/persistence"
	"room-editor/backend/internal/selection"
	"room-editor/backend/internal/snapshot"
	"room-editor/backend/internal/telemetry"
	"room-editor/backend/internal/world"
)

var (
	// ErrNoSelection операция требует выбранного объекта
	ErrNoSelection = errors.New("editor: объект не выбран")

	// ErrObjectNotFound объекта с таким идентификатором нет в сцене
	ErrObjectNotFound = errors.New("editor: объект не найден")

	// ErrNotTintable у объекта нет материала с настраиваемым цветом
	ErrNotTintable = errors.New("editor: у объекта нет цвета")

	// ErrInvalidScale масштаб должен быть положительным
	ErrInvalidScale = errors.New("editor: недопустимый масштаб")
)

// Config настройки сессии редактора
type Config struct {
	MaxHistory        int           // Ограничение истории; 0 означает значение из конфигурации мира
	InitialStateDelay time.Duration // Задержка записи "Initial State"
}

// EditorService сессия редактора комнаты. Один мьютекс защищает сцену,
// историю, выбор и манипулятор как единое целое.
type EditorService struct {
	mu sync.Mutex

	scene     *world.Scene
	history   *history.Manager
	selection *selection.Manager
	gateway   *persistence.Gateway
	controls  *TransformControls
	telemetry *telemetry.TelemetryManager

	snapEnabled bool
	snapStep    float64

	observers    map[int]editing.Observer
	nextObserver int
	inspector    *selection.Inspector

	initialDelay time.Duration
	initialTimer *time.Timer

	jitter func() float64
	logger *log.Logger
}

var _ editing.EditorPort = (*EditorService)(nil)

// NewEditorService создает сессию поверх сцены и шлюза сохранения
func NewEditorService(scene *world.Scene, gateway *persistence.Gateway, cfg Config, logger *log.Logger) *EditorService {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.InitialStateDelay <= 0 {
		cfg.InitialStateDelay = 100 * time.Millisecond
	}

	snap := world.GetSnapConfig()
	s := &EditorService{
		scene:        scene,
		history:      history.NewManager(snapshot.NewCodec(logger), scene, cfg.MaxHistory, logger),
		selection:    selection.NewManager(scene),
		gateway:      gateway,
		controls:     NewTransformControls(),
		telemetry:    telemetry.GlobalTelemetry,
		snapEnabled:  snap.Enabled,
		snapStep:     world.NormalizeSnapStep(snap.Size),
		observers:    make(map[int]editing.Observer),
		initialDelay: cfg.InitialStateDelay,
		jitter:       rand.Float64,
		logger:       logger,
	}

	s.selection.OnInspectorUpdate(func(i *selection.Inspector) {
		s.inspector = i
	})
	s.selection.OnSelectedInfoUpdate(func(info selection.Info) {
		for _, o := range s.observers {
			o.SelectionChanged(s.inspector, info)
		}
	})
	s.history.OnChange(func(status history.Status) {
		for _, o := range s.observers {
			o.HistoryChanged(status)
		}
	})
	s.history.OnRestore(func(*snapshot.Entry) {
		s.afterSceneReplaced()
	})

	return s
}

// SetTelemetry задает менеджер телеметрии; nil отключает запись
func (s *EditorService) SetTelemetry(tm *telemetry.TelemetryManager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry = tm
}

// Start планирует запись начального состояния
func (s *EditorService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialTimer != nil {
		return
	}
	s.initialTimer = time.AfterFunc(s.initialDelay, func() {
		if err := s.SaveInitialState(); err != nil {
			s.logger.Printf("[Editor] Ошибка записи начального состояния: %v", err)
		}
	})
	s.logger.Printf("[Editor] Сессия запущена, начальное состояние через %v", s.initialDelay)
}

// Stop отменяет отложенную запись начального состояния
func (s *EditorService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialTimer != nil {
		s.initialTimer.Stop()
	}
}

// SaveInitialState записывает "Initial State", если история пуста
func (s *EditorService) SaveInitialState() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.history.Count() > 0 {
		return nil
	}
	return s.commit("Initial State", nil, time.Now())
}

// AddObserver регистрирует наблюдателя и возвращает функцию отписки
func (s *EditorService) AddObserver(o editing.Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = o

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// AddBox добавляет коробку
func (s *EditorService) AddBox() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	obj := s.scene.Registry().NewBox(fmt.Sprintf("Box %d", s.scene.Furniture.Len()+1))
	s.scatter(obj)
	return s.addFurniture(obj, "Add Box", start)
}

// AddSphere добавляет сферу
func (s *EditorService) AddSphere() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	obj := s.scene.Registry().NewSphere(fmt.Sprintf("Sphere %d", s.scene.Furniture.Len()+1))
	s.scatter(obj)
	return s.addFurniture(obj, "Add Sphere", start)
}

// AddChair добавляет стул
func (s *EditorService) AddChair() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	obj := s.scene.Registry().NewChair(fmt.Sprintf("Chair %d", s.scene.Furniture.Len()+1))
	s.scatter(obj)
	return s.addFurniture(obj, "Add Chair", start)
}

// CreateCustomObject создает объект пользовательской формы в центре комнаты
func (s *EditorService) CreateCustomObject(req editing.CustomObjectRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	color := world.GetPalette().Custom
	if req.Color != "" {
		c, err := persistence.ParseColor(req.Color)
		if err != nil {
			return "", fmt.Errorf("пользовательский объект: %w", err)
		}
		color = c
	}

	obj, err := s.scene.Registry().NewCustom(req.Name, req.Shape, req.Params, color)
	if err != nil {
		return "", err
	}
	return s.addFurniture(obj, "Create Custom Object", start)
}

// AddDoor добавляет дверь на переднюю стену
func (s *EditorService) AddDoor() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	door := s.scene.Registry().NewDoor(s.scene.Bounds())
	s.scene.Assets.Add(door)
	return door.ID, s.commit("Add Door", door, start)
}

// AddWindow добавляет окно на правую стену
func (s *EditorService) AddWindow() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	window := s.scene.Registry().NewWindow(s.scene.Bounds())
	s.scene.Assets.Add(window)
	return window.ID, s.commit("Add Window", window, start)
}

// PickObject выбирает мебель или элемент комнаты и прикрепляет манипулятор
func (s *EditorService) PickObject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scene.Find(id); !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	s.selectAndAttach(id)
	s.publish()
	return nil
}

// ClickEmpty снимает выбор при щелчке по пустому месту
func (s *EditorService) ClickEmpty() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selection.Selected() == "" {
		return
	}
	s.deselect()
	s.publish()
}

// DeleteSelected удаляет выбранный объект. Без выбора ничего не делает.
func (s *EditorService) DeleteSelected() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	obj, ok := s.selection.Object()
	if !ok {
		return false, nil
	}
	if !s.scene.Furniture.Remove(obj.ID) {
		s.scene.Assets.Remove(obj.ID)
	}
	s.deselect()
	return true, s.commit("Delete Object", obj, start)
}

// DeleteObject удаляет мебель по идентификатору (контекстное меню)
func (s *EditorService) DeleteObject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	obj, ok := s.scene.Furniture.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	s.scene.Furniture.Remove(id)
	if s.selection.Selected() == id {
		s.deselect()
	}
	return s.commit("Delete Object", obj, start)
}

// DuplicateSelected копирует выбранный объект со сдвигом 0.5 по X
func (s *EditorService) DuplicateSelected() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	obj, ok := s.selection.Object()
	if !ok {
		return "", ErrNoSelection
	}

	clone, err := obj.Clone()
	if err != nil {
		return "", err
	}
	clone.ID = s.scene.Registry().NewID()
	clone.Name = obj.Name + " Copy"
	clone.Emissive = 0
	clone.Position = clone.Position.Add(mgl64.Vec3{0.5, 0, 0})

	return s.addFurniture(clone, "Duplicate Object", start)
}

// ClearFurniture удаляет всю мебель
func (s *EditorService) ClearFurniture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.scene.Furniture.Clear()
	s.deselect()
	return s.commit("Clear Furniture", nil, start)
}

// Rename переименовывает выбранный объект
func (s *EditorService) Rename(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	obj, ok := s.selection.Object()
	if !ok {
		return ErrNoSelection
	}
	obj.Name = name
	s.selection.Refresh()
	return s.commit("Rename Object", obj, start)
}

// SetColor меняет цвет выбранного объекта
func (s *EditorService) SetColor(color uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	obj, ok := s.selection.Object()
	if !ok {
		return ErrNoSelection
	}
	if !obj.Tintable() {
		return fmt.Errorf("%w: %s", ErrNotTintable, obj.Name)
	}
	obj.Color = color & 0xffffff
	s.selection.Refresh()
	return s.commit("Change Object Color", obj, start)
}

// SetTransform применяет трансформацию во время перетаскивания. Позиция
// ограничивается комнатой, вращение квантуется при включенной привязке.
func (s *EditorService) SetTransform(t editing.Transform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.applyTransform(t); err != nil {
		return err
	}
	s.selection.Refresh()
	s.publish()
	return nil
}

// EndTransform завершает перетаскивание
func (s *EditorService) EndTransform() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	obj, ok := s.selection.Object()
	if ok && s.snapEnabled {
		obj.Position = world.SnapToGrid(obj.Position, s.snapStep, s.scene.Bounds())
		s.selection.Refresh()
	}
	return s.commit("Transform Object", obj, start)
}

// ApplyTransform применяет значения панели свойств
func (s *EditorService) ApplyTransform(t editing.Transform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	obj, err := s.applyTransform(t)
	if err != nil {
		return err
	}
	s.selection.Refresh()
	return s.commit("Modify Object", obj, start)
}

func (s *EditorService) applyTransform(t editing.Transform) (*world.SceneObject, error) {
	obj, ok := s.selection.Object()
	if !ok {
		return nil, ErrNoSelection
	}
	if t.Scale != nil {
		for _, v := range *t.Scale {
			if !(v > 0) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidScale, *t.Scale)
			}
		}
	}

	if t.Position != nil {
		obj.Position = s.scene.ClampToRoom(*t.Position)
	}
	if t.Rotation != nil {
		obj.Rotation = s.controls.applyRotation(*t.Rotation)
	}
	if t.Scale != nil {
		obj.Scale = *t.Scale
	}
	return obj, nil
}

// ResizeRoom перестраивает комнату с новыми размерами
func (s *EditorService) ResizeRoom(width, depth, height float64) (world.RoomBounds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	bounds := s.scene.BuildRoom(width, depth, height)
	s.afterSceneReplaced()
	return bounds, s.commit("Resize Room", nil, start)
}

// SetMaterialColor меняет цвет поверхности комнаты
func (s *EditorService) SetMaterialColor(surface world.Surface, color uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var description string
	switch surface {
	case world.SurfaceFloor:
		description = "Change Floor Color"
	case world.SurfaceWall:
		description = "Change Wall Color"
	case world.SurfaceCeiling:
		description = "Change Ceiling Color"
	}
	if err := s.scene.SetMaterial(surface, color&0xffffff); err != nil {
		return err
	}
	return s.commit(description, nil, start)
}

// ApplyTexture применяет готовый образец цвета к полу или стенам
func (s *EditorService) ApplyTexture(surface world.Surface, color uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if err := s.scene.SetMaterial(surface, color&0xffffff); err != nil {
		return err
	}
	return s.commit("Change Texture", nil, start)
}

// SetSnapping включает привязку к сетке и задает ее шаг
func (s *EditorService) SetSnapping(enabled bool, step float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapEnabled = enabled
	s.snapStep = world.NormalizeSnapStep(step)
	s.publish()
}

// SetRotationSnap включает привязку вращения с шагом π/4
func (s *EditorService) SetRotationSnap(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enabled {
		step := world.GetSnapConfig().RotationSnapStep()
		s.controls.SetRotationSnap(&step)
	} else {
		s.controls.SetRotationSnap(nil)
	}
	s.publish()
}

// SetTransformMode меняет режим манипулятора
func (s *EditorService) SetTransformMode(mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.controls.SetMode(TransformMode(mode)); err != nil {
		return err
	}
	s.publish()
	return nil
}

// Undo отменяет последнее действие
func (s *EditorService) Undo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	ok, err := s.history.Undo()
	if !ok {
		return false, err
	}
	s.track("Undo", nil, start)
	s.publish()
	return true, err
}

// Redo повторяет отмененное действие
func (s *EditorService) Redo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	ok, err := s.history.Redo()
	if !ok {
		return false, err
	}
	s.track("Redo", nil, start)
	s.publish()
	return true, err
}

// ExportToFile записывает документ сцены и возвращает имя файла
func (s *EditorService) ExportToFile(w io.Writer) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gateway.ExportToFile(w, s.scene)
}

// ImportFromFile загружает сцену из документа. При ошибке разбора сцена не меняется.
func (s *EditorService) ImportFromFile(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if _, err := s.gateway.ImportFromFile(s.scene, data); err != nil {
		return err
	}
	s.afterSceneReplaced()
	return s.commit("Load Scene", nil, start)
}

// AutoSave записывает сцену в слот автосохранения
func (s *EditorService) AutoSave(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	written, err := s.gateway.AutoSave(ctx, s.scene)
	if err != nil {
		return false, err
	}
	if written {
		s.track("Auto Save", nil, start)
	}
	return written, nil
}

// LoadAutoSave загружает сцену из слота автосохранения
func (s *EditorService) LoadAutoSave(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if _, err := s.gateway.LoadAutoSave(ctx, s.scene); err != nil {
		return err
	}
	s.afterSceneReplaced()
	return s.commit("Load Auto-Save", nil, start)
}

// View возвращает текущее состояние сцены
func (s *EditorService) View() *entity.SceneView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// HistoryStatus возвращает состояние истории
func (s *EditorService) HistoryStatus() history.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Status()
}

// HistoryEntries возвращает описания записей истории от старой к новой
func (s *EditorService) HistoryEntries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// Selection возвращает панель свойств и строку выбранного объекта
func (s *EditorService) Selection() (*selection.Inspector, selection.Info) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Inspector(), s.selection.Info()
}

func (s *EditorService) scatter(obj *world.SceneObject) {
	obj.Position = mgl64.Vec3{(s.jitter() - 0.5) * 3, obj.Position.Y(), (s.jitter() - 0.5) * 3}
}

func (s *EditorService) addFurniture(obj *world.SceneObject, description string, start time.Time) (string, error) {
	obj.Position = s.scene.ClampToRoom(obj.Position)
	s.scene.Furniture.Add(obj)
	s.selectAndAttach(obj.ID)
	return obj.ID, s.commit(description, obj, start)
}

func (s *EditorService) selectAndAttach(id string) {
	s.selection.Select(id)
	s.controls.Attach(id)
	s.controls.Visible = true
}

func (s *EditorService) deselect() {
	s.controls.Detach()
	s.controls.Visible = false
	s.selection.Select("")
}

// afterSceneReplaced согласует выбор и манипулятор с перестроенной сценой
func (s *EditorService) afterSceneReplaced() {
	s.selection.Reconcile()
	if _, ok := s.scene.Find(s.controls.Attached()); !ok {
		s.controls.Detach()
		s.controls.Visible = false
	}
}

// commit записывает состояние в историю и рассылает сцену наблюдателям
func (s *EditorService) commit(description string, obj *world.SceneObject, start time.Time) error {
	err := s.history.SaveState(description)
	s.track(description, obj, start)
	s.publish()
	if err != nil {
		return fmt.Errorf("запись истории: %w", err)
	}
	return nil
}

func (s *EditorService) track(operation string, obj *world.SceneObject, start time.Time) {
	if s.telemetry == nil {
		return
	}
	var id, kind string
	var position mgl64.Vec3
	if obj != nil {
		id, kind, position = obj.ID, string(obj.Kind), obj.Position
	}
	s.telemetry.LogEdit(operation, "session", id, kind, position,
		s.scene.Furniture.Len(), s.scene.Assets.Len(), time.Since(start))
}

func (s *EditorService) viewLocked() *entity.SceneView {
	view := entity.NewSceneView(s.scene)
	view.Selected = s.selection.Selected()
	view.Snap = entity.SnapView{
		Enabled:         s.snapEnabled,
		Step:            s.snapStep,
		RotationEnabled: s.controls.RotationSnap() != nil,
	}
	view.Controls = s.controls.view()
	return view
}

func (s *EditorService) publish() {
	if len(s.observers) == 0 {
		return
	}
	view := s.viewLocked()
	for _, o := range s.observers {
		o.SceneChanged(view)
	}
}
