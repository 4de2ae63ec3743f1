package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleSceneCreator_CreateAll(t *testing.T) {
	scene := NewScene(NewRegistryWithIDs(sequentialIDs(), quietLogger()), quietLogger())
	assetsBefore := scene.Assets.Len()

	NewSampleSceneCreator(scene, quietLogger()).CreateAll()

	assert.Equal(t, assetsBefore+2, scene.Assets.Len(), "дверь и окно")
	require.Equal(t, 4, scene.Furniture.Len())

	b := scene.Bounds()
	for _, obj := range scene.Furniture.All() {
		inside(t, obj.Position, b)
	}

	var kinds []Kind
	for _, obj := range scene.Assets.All() {
		kinds = append(kinds, obj.Kind)
	}
	assert.Contains(t, kinds, KindDoor)
	assert.Contains(t, kinds, KindWindow)
}
