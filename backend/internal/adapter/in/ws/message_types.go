package ws

import (
	"time"

	"room-editor/backend/internal/core/domain/entity"
	"room-editor/backend/internal/history"
	"room-editor/backend/internal/selection"
)

// Типы сообщений сервер -> клиент
const (
	MessageTypeInfo      = "info"      // Информационное сообщение
	MessageTypePong      = "pong"      // Ответ на пинг
	MessageTypeAck       = "ack"       // Подтверждение команды
	MessageTypeScene     = "scene"     // Полное состояние сцены
	MessageTypeHistory   = "history"   // Состояние истории
	MessageTypeSelection = "selection" // Выбранный объект
	MessageTypeError     = "error"     // Ошибка обработки команды
)

// Типы сообщений клиент -> сервер
const (
	MessageTypePing            = "ping"
	MessageTypeSelect          = "select"
	MessageTypeClickEmpty      = "click_empty"
	MessageTypeAddObject       = "add_object"
	MessageTypeCreateCustom    = "create_custom"
	MessageTypeAddAsset        = "add_asset"
	MessageTypeTransform       = "transform"
	MessageTypeTransformEnd    = "transform_end"
	MessageTypeApplyTransform  = "apply_transform"
	MessageTypeDelete          = "delete"
	MessageTypeDuplicate       = "duplicate"
	MessageTypeClearFurniture  = "clear_furniture"
	MessageTypeRename          = "rename"
	MessageTypeSetColor        = "set_color"
	MessageTypeBuildRoom       = "build_room"
	MessageTypeSetMaterial     = "set_material"
	MessageTypeSetSnap         = "set_snap"
	MessageTypeSetRotationSnap = "set_rotation_snap"
	MessageTypeSetMode         = "set_mode"
	MessageTypeUndo            = "undo"
	MessageTypeRedo            = "redo"
	MessageTypeLoadAutoSave    = "load_autosave"
	MessageTypeSaveAutoSave    = "save_autosave"
)

// GetCurrentServerTime возвращает текущее серверное время в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixMilli()
}

// NewPongMessage создает новое сообщение-ответ на пинг
func NewPongMessage(clientTime float64) map[string]interface{} {
	serverTimeMs := GetCurrentServerTime()
	return map[string]interface{}{
		"type":        MessageTypePong,
		"client_time": clientTime,
		"clientTime":  clientTime,
		"server_time": serverTimeMs,
		"serverTime":  float64(serverTimeMs) / 1000,
	}
}

// NewAckMessage создает подтверждение команды; id пустой для команд без результата
func NewAckMessage(cmd string, id string) map[string]interface{} {
	msg := map[string]interface{}{
		"type":        MessageTypeAck,
		"cmd":         cmd,
		"server_time": GetCurrentServerTime(),
	}
	if id != "" {
		msg["id"] = id
	}
	return msg
}

// NewInfoMessage создает новое информационное сообщение
func NewInfoMessage(message string) map[string]interface{} {
	return map[string]interface{}{
		"type":    MessageTypeInfo,
		"message": message,
	}
}

// NewErrorMessage создает сообщение об ошибке обработки команды
func NewErrorMessage(cmd string, err error) map[string]interface{} {
	return map[string]interface{}{
		"type":    MessageTypeError,
		"cmd":     cmd,
		"message": err.Error(),
	}
}

// NewSceneMessage создает сообщение с полным состоянием сцены
func NewSceneMessage(view *entity.SceneView) map[string]interface{} {
	return map[string]interface{}{
		"type":        MessageTypeScene,
		"scene":       view,
		"server_time": GetCurrentServerTime(),
	}
}

// NewHistoryMessage создает сообщение о состоянии истории
func NewHistoryMessage(status history.Status) map[string]interface{} {
	return map[string]interface{}{
		"type":    MessageTypeHistory,
		"history": status,
	}
}

// NewSelectionMessage создает сообщение о выбранном объекте.
// inspector равен nil, когда ничего не выбрано.
func NewSelectionMessage(inspector *selection.Inspector, info selection.Info) map[string]interface{} {
	return map[string]interface{}{
		"type":      MessageTypeSelection,
		"inspector": inspector,
		"info":      info,
	}
}
