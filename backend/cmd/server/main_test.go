package main

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-editor/backend/internal/adapter/out/memory"
	"room-editor/backend/internal/core/domain/service"
	"room-editor/backend/internal/persistence"
	"room-editor/backend/internal/world"
)

func newEditor(store *memory.SlotStore, logger *log.Logger) *service.EditorService {
	scene := world.NewScene(world.NewRegistry(), logger)
	world.NewSampleSceneCreator(scene, logger).CreateAll()
	editor := service.NewEditorService(scene, persistence.NewGateway(store, logger), service.Config{}, logger)
	editor.SetTelemetry(nil)
	return editor
}

func TestRestoreAutoSave_KeepsInitialState(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)
	store := memory.NewSlotStore()

	previous := newEditor(store, logger)
	require.NoError(t, previous.ClearFurniture())
	_, err := previous.AddBox()
	require.NoError(t, err)
	written, err := previous.AutoSave(ctx)
	require.NoError(t, err)
	require.True(t, written)

	editor := newEditor(store, logger)
	sampleCount := len(editor.View().Furniture)
	require.Greater(t, sampleCount, 1)

	restoreAutoSave(ctx, editor, logger)
	assert.Equal(t, []string{"Initial State", "Load Auto-Save"}, editor.HistoryEntries())
	assert.Len(t, editor.View().Furniture, 1)

	ok, err := editor.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, editor.View().Furniture, sampleCount)
}

func TestRestoreAutoSave_Missing(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	editor := newEditor(memory.NewSlotStore(), logger)

	restoreAutoSave(context.Background(), editor, logger)
	assert.Equal(t, []string{"Initial State"}, editor.HistoryEntries())
}
