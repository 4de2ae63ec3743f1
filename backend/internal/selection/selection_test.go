package selection

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-editor/backend/internal/world"
)

func newTestScene() *world.Scene {
	logger := log.New(io.Discard, "", 0)
	return world.NewScene(world.NewRegistryWithIDs(nil, logger), logger)
}

func TestManager_SelectHighlights(t *testing.T) {
	scene := newTestScene()
	box := scene.Registry().NewBox("Box 1")
	sphere := scene.Registry().NewSphere("Sphere 2")
	scene.Furniture.Add(box)
	scene.Furniture.Add(sphere)

	m := NewManager(scene)
	m.Select(box.ID)
	assert.Equal(t, box.ID, m.Selected())
	assert.Equal(t, uint32(0x333333), box.Emissive)

	m.Select(sphere.ID)
	assert.Equal(t, uint32(0), box.Emissive, "подсветка прежнего выбора снимается")
	assert.Equal(t, uint32(0x333333), sphere.Emissive)
	assert.Equal(t, sphere.ID, m.LastSelected())

	m.Select("")
	assert.Empty(t, m.Selected())
	assert.Equal(t, uint32(0), sphere.Emissive)
	assert.Equal(t, sphere.ID, m.LastSelected(), "снятие выбора не трогает lastSelected")
}

func TestManager_GroupIsNotTinted(t *testing.T) {
	scene := newTestScene()
	chair := scene.Registry().NewChair("Chair 1")
	scene.Furniture.Add(chair)

	m := NewManager(scene)
	m.Select(chair.ID)
	assert.Equal(t, chair.ID, m.Selected())
	assert.Zero(t, chair.Emissive)
}

func TestManager_ObserversOptional(t *testing.T) {
	scene := newTestScene()
	box := scene.Registry().NewBox("Box 1")
	scene.Furniture.Add(box)

	m := NewManager(scene)
	assert.NotPanics(t, func() { m.Select(box.ID) })

	var inspectors []*Inspector
	var infos []Info
	m.OnInspectorUpdate(func(i *Inspector) { inspectors = append(inspectors, i) })
	m.OnSelectedInfoUpdate(func(i Info) { infos = append(infos, i) })

	m.Select(box.ID)
	m.Select("")

	require.Len(t, inspectors, 2)
	require.Len(t, infos, 2)
	require.NotNil(t, inspectors[0])
	assert.Equal(t, "box", inspectors[0].Geometry)
	assert.Equal(t, "#8aa7f2", inspectors[0].Color)
	assert.Nil(t, inspectors[1])

	assert.True(t, infos[0].Selected)
	assert.Equal(t, "Box 1", infos[0].Name)
	assert.Equal(t, "box • "+box.ID[:8], infos[0].Type)
	assert.Equal(t, Info{Name: "None", Type: "Click an object to select"}, infos[1])
}

func TestManager_Reconcile(t *testing.T) {
	scene := newTestScene()
	box := scene.Registry().NewBox("Box 1")
	scene.Furniture.Add(box)

	m := NewManager(scene)
	m.Select(box.ID)

	// Сцена перестроена: новый объект с тем же идентификатором
	rebuilt, ok := scene.Registry().Construct(box.ID, box.Name, box.Kind, box.Shape, box.Color)
	require.True(t, ok)
	scene.Furniture.Clear()
	scene.Furniture.Add(rebuilt)

	m.Reconcile()
	assert.Equal(t, box.ID, m.Selected())
	assert.Equal(t, uint32(0x333333), rebuilt.Emissive)

	scene.Furniture.Clear()
	m.Reconcile()
	assert.Empty(t, m.Selected())
	_, ok = m.Object()
	assert.False(t, ok)
}
