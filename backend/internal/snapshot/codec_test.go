package snapshot

import (
	"io"
	"log"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-editor/backend/internal/world"
)

func newTestScene(t *testing.T) (*world.Scene, *Codec) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	scene := world.NewScene(world.NewRegistryWithIDs(nil, logger), logger)
	return scene, NewCodec(logger)
}

func TestCodec_RoundTripBoxAndSphere(t *testing.T) {
	scene, codec := newTestScene(t)
	registry := scene.Registry()

	box := registry.NewBox("Box 1")
	box.Position = mgl64.Vec3{0, 0.25, 0}
	sphere := registry.NewSphere("Sphere 2")
	sphere.Position = mgl64.Vec3{1, 0.35, 0}
	scene.Furniture.Add(box)
	scene.Furniture.Add(sphere)

	entry, err := codec.Capture(scene, "Add Sphere")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Furniture)
	assert.Equal(t, 3, entry.Assets)

	skipped, err := codec.Restore(entry, scene)
	require.NoError(t, err)
	assert.Zero(t, skipped)

	restored := scene.Furniture.All()
	require.Len(t, restored, 2)

	assert.Equal(t, box.ID, restored[0].ID)
	assert.Equal(t, world.KindBox, restored[0].Kind)
	assert.Equal(t, uint32(0x8aa7f2), restored[0].Color)
	assert.True(t, restored[0].Position.ApproxEqualThreshold(mgl64.Vec3{0, 0.25, 0}, 1e-9))
	assert.Equal(t, &world.BoxData{Width: 1, Height: 0.5, Depth: 0.6}, restored[0].Shape.Box)

	assert.Equal(t, sphere.ID, restored[1].ID)
	assert.Equal(t, world.KindSphere, restored[1].Kind)
	assert.Equal(t, uint32(0xf2a76b), restored[1].Color)
	assert.True(t, restored[1].Position.ApproxEqualThreshold(mgl64.Vec3{1, 0.35, 0}, 1e-9))
	assert.Equal(t, 0.35, restored[1].Shape.Sphere.Radius)
}

func TestCodec_CaptureIsDetached(t *testing.T) {
	scene, codec := newTestScene(t)
	door := scene.Registry().NewDoor(scene.Bounds())
	scene.Assets.Add(door)

	chair := scene.Registry().NewChair("Chair 1")
	chair.Position = mgl64.Vec3{1, 0.1, 1}
	scene.Furniture.Add(chair)

	entry, err := codec.Capture(scene, "Add Chair")
	require.NoError(t, err)

	// Правки живых объектов после снимка не попадают в запись
	chair.Position[0] = -2
	chair.Name = "renamed"
	door.UserData["wall"] = "back"

	state, err := entry.State()
	require.NoError(t, err)
	require.Len(t, state.Furniture, 1)
	assert.Equal(t, 1.0, state.Furniture[0].Position.X())
	assert.Equal(t, "Chair 1", state.Furniture[0].Name)

	var wall any
	for _, rec := range state.Assets {
		if rec.Kind == world.KindDoor {
			wall = rec.UserData["wall"]
		}
	}
	assert.Equal(t, "front", wall)
}

func TestCodec_RestoreRebuildsCompositeAndLight(t *testing.T) {
	scene, codec := newTestScene(t)
	chair := scene.Registry().NewChair("Chair 1")
	chair.Rotation = mgl64.Vec3{0, 1.2, 0}
	scene.Furniture.Add(chair)

	entry, err := codec.Capture(scene, "Add Chair")
	require.NoError(t, err)
	_, err = codec.Restore(entry, scene)
	require.NoError(t, err)

	got, ok := scene.Furniture.Get(chair.ID)
	require.True(t, ok)
	assert.Len(t, got.Parts, 6)
	assert.Equal(t, chair.Rotation, got.Rotation)

	lights := 0
	for _, a := range scene.Assets.All() {
		if a.Kind.IsLight() {
			lights++
			assert.Equal(t, world.POINT_LIGHT, a.Shape.Type)
		}
	}
	assert.Equal(t, 1, lights)
}

func TestCodec_RestoreSkipsUnknownGeometry(t *testing.T) {
	scene, codec := newTestScene(t)

	state := &State{
		Room:      world.RoomBounds{Width: 4, Depth: 4, Height: 2.5},
		Materials: world.DefaultMaterials(),
		Furniture: []Record{
			{ID: "a", Name: "legacy box", Kind: world.KindBox,
				Shape: world.NewUnknownShape(map[string]float64{"width": 1, "height": 1, "depth": 1})},
			{ID: "b", Name: "torus", Kind: world.KindCustom,
				Shape: world.NewUnknownShape(map[string]float64{"tube": 0.2})},
		},
		Assets: []Record{
			{ID: "c", Name: "Light", Kind: "PointLight", Position: mgl64.Vec3{0, 2.3, 0}},
		},
	}
	entry, err := codec.Encode(state, "Legacy")
	require.NoError(t, err)

	skipped, err := codec.Restore(entry, scene)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, scene.Furniture.Len())
	assert.Equal(t, 1, scene.Assets.Len())
	assert.Equal(t, world.RoomBounds{Width: 4, Depth: 4, Height: 2.5}, scene.Bounds())

	legacy, ok := scene.Furniture.Get("a")
	require.True(t, ok)
	assert.Equal(t, world.BOX, legacy.Shape.Type)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, legacy.Scale)
}

func TestCodec_RestoreRoomAndMaterials(t *testing.T) {
	scene, codec := newTestScene(t)
	entry, err := codec.Capture(scene, "Initial State")
	require.NoError(t, err)

	scene.BuildRoom(10, 10, 5)
	require.NoError(t, scene.SetMaterial(world.SurfaceFloor, 0x010203))

	_, err = codec.Restore(entry, scene)
	require.NoError(t, err)
	assert.Equal(t, world.DefaultRoomBounds(), scene.Bounds())
	assert.Equal(t, world.DefaultMaterials(), scene.Materials())
}

func TestCodec_DigestIsDeterministic(t *testing.T) {
	scene, codec := newTestScene(t)
	box := scene.Registry().NewBox("Box 1")
	box.UserData["note"] = "corner"
	box.UserData["tag"] = "oak"
	scene.Furniture.Add(box)

	first, err := codec.Capture(scene, "one")
	require.NoError(t, err)
	second, err := codec.Capture(scene, "two")
	require.NoError(t, err)
	assert.Equal(t, first.Digest, second.Digest)

	box.Position[1] = 0.3
	third, err := codec.Capture(scene, "three")
	require.NoError(t, err)
	assert.NotEqual(t, first.Digest, third.Digest)
}

func TestEntry_EmptyState(t *testing.T) {
	var entry *Entry
	_, err := entry.State()
	assert.ErrorIs(t, err, ErrEmptyEntry)

	_, codec := newTestScene(t)
	scene, _ := newTestScene(t)
	_, err = codec.Restore(&Entry{Description: "broken"}, scene)
	assert.ErrorIs(t, err, ErrEmptyEntry)
}
