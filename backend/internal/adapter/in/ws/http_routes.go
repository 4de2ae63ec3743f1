package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"room-editor/backend/internal/persistence"
	"room-editor/backend/internal/plan"
)

const maxImportSize = 8 << 20

// RegisterRoutes подключает WebSocket и HTTP-эндпоинты к mux
func (a *WSAdapter) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", a.HandleWS)
	mux.HandleFunc("GET /api/scene/export", a.handleExport)
	mux.HandleFunc("POST /api/scene/import", a.handleImport)
	mux.HandleFunc("GET /api/scene/plan.pdf", a.handlePlan)
	mux.HandleFunc("GET /api/telemetry", a.handleTelemetry)
}

// handleExport отдает документ сцены как файл для скачивания
func (a *WSAdapter) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := a.editor.ExportToFile(&buf)
	if err != nil {
		a.httpError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := buf.WriteTo(w); err != nil {
		a.logger.Printf("[WSAdapter] Ошибка отправки экспорта: %v", err)
	}
}

// handleImport заменяет сцену документом из тела запроса
func (a *WSAdapter) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		a.httpError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	if err := a.editor.ImportFromFile(data); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, persistence.ErrInvalidDocument) {
			status = http.StatusBadRequest
		}
		a.httpError(w, status, err)
		return
	}

	a.writeJSON(w, a.editor.View())
}

// handlePlan отдает план комнаты в PDF
func (a *WSAdapter) handlePlan(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := plan.Render(&buf, a.editor.View(), "Room plan"); err != nil {
		a.httpError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="room-plan.pdf"`)
	if _, err := buf.WriteTo(w); err != nil {
		a.logger.Printf("[WSAdapter] Ошибка отправки плана: %v", err)
	}
}

// handleTelemetry отдает журнал операций редактирования
func (a *WSAdapter) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	data, err := a.telemetry.GetTelemetryJSON()
	if err != nil {
		a.httpError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, data)
}

func (a *WSAdapter) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Printf("[WSAdapter] Ошибка кодирования ответа: %v", err)
	}
}

func (a *WSAdapter) httpError(w http.ResponseWriter, status int, err error) {
	a.logger.Printf("[WSAdapter] HTTP %d: %v", status, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
