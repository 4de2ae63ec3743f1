package ws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"room-editor/backend/internal/core/port/in/editing"
	"room-editor/backend/internal/persistence"
	"room-editor/backend/internal/world"
)

const storageTimeout = 5 * time.Second

var errUnknownMessage = errors.New("неизвестный тип сообщения")

// RegisterHandlers регистрирует обработчики сообщений
func (a *WSAdapter) RegisterHandlers() {
	a.handlers[MessageTypePing] = a.handlePing

	a.handlers[MessageTypeSelect] = func(c *client, message map[string]interface{}) error {
		id, err := stringField(message, "id")
		if err != nil {
			return err
		}
		return a.editor.PickObject(id)
	}

	a.handlers[MessageTypeClickEmpty] = func(c *client, message map[string]interface{}) error {
		a.editor.ClickEmpty()
		return nil
	}

	a.handlers[MessageTypeAddObject] = func(c *client, message map[string]interface{}) error {
		kind, err := stringField(message, "kind")
		if err != nil {
			return err
		}

		var add func() (string, error)
		switch world.Kind(kind) {
		case world.KindBox:
			add = a.editor.AddBox
		case world.KindSphere:
			add = a.editor.AddSphere
		case world.KindChair:
			add = a.editor.AddChair
		default:
			return fmt.Errorf("неподдерживаемый тип объекта: %s", kind)
		}
		return a.ack(c, MessageTypeAddObject, add)
	}

	a.handlers[MessageTypeCreateCustom] = func(c *client, message map[string]interface{}) error {
		shape, err := stringField(message, "shape")
		if err != nil {
			return err
		}
		req := editing.CustomObjectRequest{
			Name:   optionalString(message, "name"),
			Shape:  shape,
			Color:  optionalString(message, "color"),
			Params: make(map[string]float64),
		}
		if raw, ok := message["params"].(map[string]interface{}); ok {
			for k, v := range raw {
				f, ok := v.(float64)
				if !ok {
					return fmt.Errorf("параметр %s должен быть числом", k)
				}
				req.Params[k] = f
			}
		}
		return a.ack(c, MessageTypeCreateCustom, func() (string, error) {
			return a.editor.CreateCustomObject(req)
		})
	}

	a.handlers[MessageTypeAddAsset] = func(c *client, message map[string]interface{}) error {
		kind, err := stringField(message, "kind")
		if err != nil {
			return err
		}
		switch world.Kind(kind) {
		case world.KindDoor:
			return a.ack(c, MessageTypeAddAsset, a.editor.AddDoor)
		case world.KindWindow:
			return a.ack(c, MessageTypeAddAsset, a.editor.AddWindow)
		default:
			return fmt.Errorf("неподдерживаемый элемент комнаты: %s", kind)
		}
	}

	a.handlers[MessageTypeTransform] = func(c *client, message map[string]interface{}) error {
		t, err := transformFields(message)
		if err != nil {
			return err
		}
		return a.editor.SetTransform(t)
	}

	a.handlers[MessageTypeTransformEnd] = func(c *client, message map[string]interface{}) error {
		return a.editor.EndTransform()
	}

	a.handlers[MessageTypeApplyTransform] = func(c *client, message map[string]interface{}) error {
		t, err := transformFields(message)
		if err != nil {
			return err
		}
		return a.editor.ApplyTransform(t)
	}

	a.handlers[MessageTypeDelete] = func(c *client, message map[string]interface{}) error {
		if id := optionalString(message, "id"); id != "" {
			return a.editor.DeleteObject(id)
		}
		_, err := a.editor.DeleteSelected()
		return err
	}

	a.handlers[MessageTypeDuplicate] = func(c *client, message map[string]interface{}) error {
		return a.ack(c, MessageTypeDuplicate, a.editor.DuplicateSelected)
	}

	a.handlers[MessageTypeClearFurniture] = func(c *client, message map[string]interface{}) error {
		return a.editor.ClearFurniture()
	}

	a.handlers[MessageTypeRename] = func(c *client, message map[string]interface{}) error {
		name, err := stringField(message, "name")
		if err != nil {
			return err
		}
		return a.editor.Rename(name)
	}

	a.handlers[MessageTypeSetColor] = func(c *client, message map[string]interface{}) error {
		color, err := colorField(message, "color")
		if err != nil {
			return err
		}
		return a.editor.SetColor(color)
	}

	a.handlers[MessageTypeBuildRoom] = func(c *client, message map[string]interface{}) error {
		dims := make([]float64, 0, 3)
		for _, key := range []string{"width", "depth", "height"} {
			v, err := floatField(message, key)
			if err != nil {
				return err
			}
			dims = append(dims, v)
		}
		_, err := a.editor.ResizeRoom(dims[0], dims[1], dims[2])
		return err
	}

	a.handlers[MessageTypeSetMaterial] = func(c *client, message map[string]interface{}) error {
		surface, err := stringField(message, "surface")
		if err != nil {
			return err
		}
		color, err := colorField(message, "color")
		if err != nil {
			return err
		}
		if texture, _ := message["texture"].(bool); texture {
			return a.editor.ApplyTexture(world.Surface(surface), color)
		}
		return a.editor.SetMaterialColor(world.Surface(surface), color)
	}

	a.handlers[MessageTypeSetSnap] = func(c *client, message map[string]interface{}) error {
		enabled, _ := message["enabled"].(bool)
		step, _ := message["step"].(float64)
		a.editor.SetSnapping(enabled, step)
		return nil
	}

	a.handlers[MessageTypeSetRotationSnap] = func(c *client, message map[string]interface{}) error {
		enabled, _ := message["enabled"].(bool)
		a.editor.SetRotationSnap(enabled)
		return nil
	}

	a.handlers[MessageTypeSetMode] = func(c *client, message map[string]interface{}) error {
		mode, err := stringField(message, "mode")
		if err != nil {
			return err
		}
		return a.editor.SetTransformMode(mode)
	}

	a.handlers[MessageTypeUndo] = func(c *client, message map[string]interface{}) error {
		_, err := a.editor.Undo()
		return err
	}

	a.handlers[MessageTypeRedo] = func(c *client, message map[string]interface{}) error {
		_, err := a.editor.Redo()
		return err
	}

	a.handlers[MessageTypeLoadAutoSave] = func(c *client, message map[string]interface{}) error {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()

		if err := a.editor.LoadAutoSave(ctx); err != nil {
			if errors.Is(err, persistence.ErrNoAutoSave) {
				a.send(c, NewInfoMessage("No auto-save found"))
				return nil
			}
			return err
		}
		a.send(c, NewInfoMessage("Auto-save loaded"))
		return nil
	}

	a.handlers[MessageTypeSaveAutoSave] = func(c *client, message map[string]interface{}) error {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()

		written, err := a.editor.AutoSave(ctx)
		if err != nil {
			return err
		}
		if written {
			a.send(c, NewInfoMessage("Scene auto-saved"))
		} else {
			a.send(c, NewInfoMessage("No changes to save"))
		}
		return nil
	}
}

// handlePing отвечает pong с временем клиента и сервера
func (a *WSAdapter) handlePing(c *client, message map[string]interface{}) error {
	var clientTime float64
	if ct, ok := message["clientTime"].(float64); ok {
		clientTime = ct
	} else if ct, ok := message["client_time"].(float64); ok {
		clientTime = ct
	} else {
		clientTime = float64(time.Now().UnixNano()) / 1e9
	}
	a.send(c, NewPongMessage(clientTime))
	return nil
}

// ack выполняет команду, возвращающую идентификатор, и подтверждает ее
func (a *WSAdapter) ack(c *client, cmd string, fn func() (string, error)) error {
	id, err := fn()
	if err != nil {
		return err
	}
	a.send(c, NewAckMessage(cmd, id))
	return nil
}

func stringField(message map[string]interface{}, key string) (string, error) {
	v, ok := message[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("поле %q должно быть непустой строкой", key)
	}
	return v, nil
}

func optionalString(message map[string]interface{}, key string) string {
	v, _ := message[key].(string)
	return v
}

func floatField(message map[string]interface{}, key string) (float64, error) {
	v, ok := message[key].(float64)
	if !ok {
		return 0, fmt.Errorf("поле %q должно быть числом", key)
	}
	return v, nil
}

func colorField(message map[string]interface{}, key string) (uint32, error) {
	raw, err := stringField(message, key)
	if err != nil {
		return 0, err
	}
	color, err := persistence.ParseColor(raw)
	if err != nil {
		return 0, fmt.Errorf("поле %q: %w", key, err)
	}
	return color, nil
}

// vectorField читает {x, y, z}; отсутствующее поле дает nil
func vectorField(message map[string]interface{}, key string) (*mgl64.Vec3, error) {
	raw, ok := message[key]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("поле %q должно быть объектом {x, y, z}", key)
	}

	var v mgl64.Vec3
	for i, axis := range []string{"x", "y", "z"} {
		f, err := floatField(m, axis)
		if err != nil {
			return nil, fmt.Errorf("поле %q: %w", key, err)
		}
		v[i] = f
	}
	return &v, nil
}

// transformFields читает position, rotation (радианы) или rotationDeg
// (градусы из панели свойств) и scale
func transformFields(message map[string]interface{}) (editing.Transform, error) {
	var t editing.Transform
	var err error

	if t.Position, err = vectorField(message, "position"); err != nil {
		return t, err
	}
	if t.Rotation, err = vectorField(message, "rotation"); err != nil {
		return t, err
	}
	if t.Rotation == nil {
		deg, err := vectorField(message, "rotationDeg")
		if err != nil {
			return t, err
		}
		if deg != nil {
			rad := mgl64.Vec3{mgl64.DegToRad(deg[0]), mgl64.DegToRad(deg[1]), mgl64.DegToRad(deg[2])}
			t.Rotation = &rad
		}
	}
	if t.Scale, err = vectorField(message, "scale"); err != nil {
		return t, err
	}
	return t, nil
}
