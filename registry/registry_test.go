package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiodl/retropak/retroid"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	txtrType := retroid.ParseAssetType("TXTR")
	h := Handler{
		Type:            txtrType,
		Parse:           func(game retroid.Game, data []byte) (any, error) { return data, nil },
		Build:           func(game retroid.Game, value any) ([]byte, error) { return value.([]byte), nil },
		HasDependencies: func(game retroid.Game) bool { return false },
	}
	r.Register(h)

	got, ok := r.Lookup(txtrType)
	require.True(t, ok)
	assert.NotNil(t, got.Parse)

	_, ok = r.Lookup(retroid.ParseAssetType("CMDL"))
	assert.False(t, ok)
}

func TestRegisterCheatAndCheat(t *testing.T) {
	r := New()
	evntType := retroid.ParseAssetType("EVNT")
	r.RegisterCheat(evntType, func(game retroid.Game, data []byte) ([]retroid.Dependency, error) {
		return nil, nil
	})

	_, ok := r.Cheat(evntType)
	assert.True(t, ok)
	_, ok = r.Cheat(retroid.ParseAssetType("CMDL"))
	assert.False(t, ok)
}

func TestHasDependenciesPrefersCheat(t *testing.T) {
	r := New()
	mlvlType := retroid.ParseAssetType("MLVL")
	r.Register(Handler{Type: mlvlType, HasDependencies: func(game retroid.Game) bool { return false }})
	r.RegisterCheat(mlvlType, func(game retroid.Game, data []byte) ([]retroid.Dependency, error) { return nil, nil })

	assert.True(t, r.HasDependencies(retroid.Prime, mlvlType))
}

func TestHasDependenciesFromHandler(t *testing.T) {
	r := New()
	mapwType := retroid.ParseAssetType("MAPW")
	r.Register(Handler{Type: mapwType, HasDependencies: func(game retroid.Game) bool { return true }})
	assert.True(t, r.HasDependencies(retroid.Prime, mapwType))
}

func TestHasDependenciesFalseForUnknownType(t *testing.T) {
	r := New()
	assert.False(t, r.HasDependencies(retroid.Prime, retroid.ParseAssetType("CMDL")))
}

func TestNewDefaultRegistersMAPWAndDGRP(t *testing.T) {
	r := NewDefault()
	_, ok := r.Lookup(retroid.ParseAssetType("MAPW"))
	assert.True(t, ok)
	_, ok = r.Lookup(retroid.ParseAssetType("DGRP"))
	assert.True(t, ok)
	_, ok = r.Lookup(retroid.ParseAssetType("CMDL"))
	assert.False(t, ok)
}
