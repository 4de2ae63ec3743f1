package service

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"room-editor/backend/internal/core/domain/entity"
	"room-editor/backend/internal/world"
)

// TransformMode режим манипулятора
type TransformMode string

const (
	ModeTranslate TransformMode = "translate"
	ModeRotate    TransformMode = "rotate"
	ModeScale     TransformMode = "scale"
)

// TransformControls манипулятор трансформаций. Хранит идентификатор
// прикрепленного объекта и шаг привязки вращения.
type TransformControls struct {
	attached     string
	Visible      bool
	mode         TransformMode
	rotationSnap *float64
}

// NewTransformControls создает манипулятор в режиме перемещения
func NewTransformControls() *TransformControls {
	return &TransformControls{mode: ModeTranslate}
}

// Attach прикрепляет манипулятор к объекту
func (c *TransformControls) Attach(id string) {
	c.attached = id
}

// Detach открепляет манипулятор
func (c *TransformControls) Detach() {
	c.attached = ""
}

// Attached идентификатор прикрепленного объекта
func (c *TransformControls) Attached() string {
	return c.attached
}

// SetMode меняет режим манипулятора
func (c *TransformControls) SetMode(mode TransformMode) error {
	switch mode {
	case ModeTranslate, ModeRotate, ModeScale:
		c.mode = mode
		return nil
	default:
		return fmt.Errorf("неизвестный режим манипулятора: %q", mode)
	}
}

// Mode текущий режим
func (c *TransformControls) Mode() TransformMode {
	return c.mode
}

// SetRotationSnap задает шаг привязки вращения в радианах; nil отключает привязку
func (c *TransformControls) SetRotationSnap(step *float64) {
	if step == nil {
		c.rotationSnap = nil
		return
	}
	v := *step
	c.rotationSnap = &v
}

// RotationSnap текущий шаг привязки вращения или nil
func (c *TransformControls) RotationSnap() *float64 {
	return c.rotationSnap
}

// applyRotation квантует вращение, если привязка включена
func (c *TransformControls) applyRotation(rot mgl64.Vec3) mgl64.Vec3 {
	if c.rotationSnap == nil {
		return rot
	}
	return world.SnapRotation(rot, *c.rotationSnap)
}

func (c *TransformControls) view() entity.ControlsView {
	return entity.ControlsView{
		Attached: c.attached,
		Visible:  c.Visible,
		Mode:     string(c.mode),
	}
}
