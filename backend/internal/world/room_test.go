package world

import (
	"io"
	"log"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func inside(t *testing.T, pos mgl64.Vec3, b RoomBounds) {
	t.Helper()
	const eps = 1e-9
	assert.LessOrEqual(t, math.Abs(pos.X()), b.Width/2-0.1+eps, "x вне комнаты: %v", pos)
	assert.LessOrEqual(t, math.Abs(pos.Z()), b.Depth/2-0.1+eps, "z вне комнаты: %v", pos)
	assert.GreaterOrEqual(t, pos.Y(), 0.1-eps, "y ниже пола: %v", pos)
	assert.LessOrEqual(t, pos.Y(), b.Height-0.1+eps, "y выше потолка: %v", pos)
}

func TestClampToRoom(t *testing.T) {
	bounds := RoomBounds{Width: 6, Depth: 5, Height: 3}

	tests := []struct {
		name string
		in   mgl64.Vec3
		want mgl64.Vec3
	}{
		{"внутри", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 1, 1}},
		{"за правой стеной", mgl64.Vec3{10, 1, 0}, mgl64.Vec3{2.9, 1, 0}},
		{"за левой стеной", mgl64.Vec3{-10, 1, 0}, mgl64.Vec3{-2.9, 1, 0}},
		{"под полом", mgl64.Vec3{0, -5, 0}, mgl64.Vec3{0, 0.1, 0}},
		{"над потолком", mgl64.Vec3{0, 9, 0}, mgl64.Vec3{0, 2.9, 0}},
		{"за дальней стеной", mgl64.Vec3{0, 1, -7}, mgl64.Vec3{0, 1, -2.4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampToRoom(tt.in, bounds)
			assert.True(t, got.ApproxEqualThreshold(tt.want, 1e-9), "got %v, want %v", got, tt.want)
		})
	}
}

func TestClampToRoom_Idempotent(t *testing.T) {
	bounds := RoomBounds{Width: 4, Depth: 7, Height: 2.5}
	points := []mgl64.Vec3{
		{100, -100, 3}, {-0.3, 0.05, 9}, {1.95, 2.45, -3.45}, {0, 0, 0},
	}
	for _, p := range points {
		once := ClampToRoom(p, bounds)
		twice := ClampToRoom(once, bounds)
		assert.Equal(t, once, twice)
		inside(t, once, bounds)
	}
}

func TestSnapToGrid(t *testing.T) {
	bounds := RoomBounds{Width: 6, Depth: 5, Height: 3}

	got := SnapToGrid(mgl64.Vec3{0.37, 0.6, -1.13}, 0.25, bounds)
	assert.True(t, got.ApproxEqualThreshold(mgl64.Vec3{0.25, 0.5, -1.25}, 1e-9), "got %v", got)

	// После округления позиция снова ограничивается комнатой
	edge := SnapToGrid(mgl64.Vec3{2.95, 2.95, 2.6}, 1.0, bounds)
	inside(t, edge, bounds)
	assert.InDelta(t, 2.9, edge.X(), 1e-9)
	assert.InDelta(t, 2.9, edge.Y(), 1e-9)
	assert.InDelta(t, 2.4, edge.Z(), 1e-9)
}

func TestSnapToGrid_StaysInside(t *testing.T) {
	for _, step := range []float64{0.05, 0.25, 0.5, 1.0} {
		for _, b := range []RoomBounds{{2, 2, 2}, {6, 5, 3}, {12, 12, 6}} {
			for _, p := range []mgl64.Vec3{{9, 9, 9}, {-9, -9, -9}, {0.49, 0.1, -0.51}} {
				inside(t, SnapToGrid(p, step, b), b)
			}
		}
	}
}

func TestNormalizeSnapStep(t *testing.T) {
	assert.Equal(t, 0.25, NormalizeSnapStep(0))
	assert.Equal(t, 0.25, NormalizeSnapStep(-1))
	assert.Equal(t, 0.05, NormalizeSnapStep(0.001))
	assert.Equal(t, 1.0, NormalizeSnapStep(4))
	assert.Equal(t, 0.5, NormalizeSnapStep(0.5))
}

func TestSnapRotation(t *testing.T) {
	step := GetSnapConfig().RotationSnapStep()
	got := SnapRotation(mgl64.Vec3{0.1, mgl64.DegToRad(50), mgl64.DegToRad(-100)}, step)
	assert.InDelta(t, 0, got.X(), 1e-9)
	assert.InDelta(t, math.Pi/4, got.Y(), 1e-9)
	assert.InDelta(t, -math.Pi/2, got.Z(), 1e-9)

	raw := mgl64.Vec3{0.3, 0.2, 0.1}
	assert.Equal(t, raw, SnapRotation(raw, 0))
}

func TestSaturateRoom(t *testing.T) {
	assert.Equal(t, RoomBounds{2, 12, 6}, SaturateRoom(1, 40, 9))
	assert.Equal(t, RoomBounds{6, 5, 3}, SaturateRoom(math.NaN(), 5, math.Inf(1)))
	assert.Equal(t, RoomBounds{7.5, 3, 2.5}, SaturateRoom(7.5, 3, 2.5))
}

func TestScene_BuildRoomClampsFurniture(t *testing.T) {
	scene := NewScene(NewRegistryWithIDs(nil, quietLogger()), quietLogger())
	require.Equal(t, DefaultRoomBounds(), scene.Bounds())
	require.Equal(t, 3, scene.Assets.Len())

	box := scene.Registry().NewBox("Box 1")
	box.Position = mgl64.Vec3{2.8, 0.25, 2.3}
	scene.Furniture.Add(box)

	bounds := scene.BuildRoom(3, 3, 2)
	assert.Equal(t, RoomBounds{3, 3, 2}, bounds)
	inside(t, box.Position, bounds)
	assert.InDelta(t, 1.4, box.Position.X(), 1e-9)

	// Светильник и лампа пересоздаются под новую высоту
	var light *SceneObject
	for _, a := range scene.Assets.All() {
		if a.Kind == KindLight {
			light = a
		}
	}
	require.NotNil(t, light)
	assert.InDelta(t, 2-0.18, light.Position.Y(), 1e-9)
	assert.InDelta(t, 9, light.Shape.Light.Range, 1e-9)
}

func TestScene_SetMaterial(t *testing.T) {
	scene := NewScene(nil, quietLogger())
	require.NoError(t, scene.SetMaterial(SurfaceWall, 0x123456))
	assert.Equal(t, uint32(0x123456), scene.Materials().Wall)
	assert.Error(t, scene.SetMaterial(Surface("roof"), 0))
}
