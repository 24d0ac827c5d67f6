package audio

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiodl/retropak/formats/dgrp"
	"github.com/axiodl/retropak/retroid"
)

type fakeSource struct {
	ids   []retroid.AssetID
	types map[retroid.AssetID]retroid.AssetType
	raw   map[retroid.AssetID][]byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{types: make(map[retroid.AssetID]retroid.AssetType), raw: make(map[retroid.AssetID][]byte)}
}

func (s *fakeSource) put(id retroid.AssetID, t retroid.AssetType, data []byte) {
	s.ids = append(s.ids, id)
	s.types[id] = t
	s.raw[id] = data
}

func (s *fakeSource) AllAssetIDs() []retroid.AssetID { return s.ids }

func (s *fakeSource) GetAssetType(id retroid.AssetID) (retroid.AssetType, error) {
	return s.types[id], nil
}

func (s *fakeSource) GetRawAsset(id retroid.AssetID) ([]byte, error) {
	return s.raw[id], nil
}

func encodeDefineIDs(ids ...uint16) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, uint32(len(ids)))
	for _, id := range ids {
		binary.Write(buf, binary.BigEndian, id)
	}
	return buf.Bytes()
}

func TestBuildNonEchoesIsEmptyIndex(t *testing.T) {
	source := newFakeSource()
	idx, err := Build(retroid.Prime, source)
	require.NoError(t, err)
	_, ok := idx.GetAudioGroupDependency(1)
	assert.False(t, ok)
}

func TestBuildResolvesSoundIDToAGSC(t *testing.T) {
	source := newFakeSource()

	agscID := retroid.NewAssetID(0x1)
	source.put(agscID, agscType, encodeDefineIDs(7))

	atblID := retroid.NewAssetID(0x2)
	// ATBL: array index is sound id, value is define id. Sound 3 -> define 7.
	atblData := encodeDefineIDs(nullDefineID, nullDefineID, nullDefineID, 7)
	source.put(atblID, atblType, atblData)

	idx, err := Build(retroid.Echoes, source)
	require.NoError(t, err)

	dep, ok := idx.GetAudioGroupDependency(3)
	require.True(t, ok)
	assert.Equal(t, agscID, dep.ID)
	assert.Equal(t, agscType, dep.Type)
}

func TestBuildSkipsNullDefineSentinels(t *testing.T) {
	source := newFakeSource()
	atblID := retroid.NewAssetID(0x1)
	source.put(atblID, atblType, encodeDefineIDs(nullDefineID))

	idx, err := Build(retroid.Echoes, source)
	require.NoError(t, err)
	_, ok := idx.GetAudioGroupDependency(0)
	assert.False(t, ok)
}

func TestBuildFlagsAlwaysLoadedGroup(t *testing.T) {
	source := newFakeSource()

	agscID := retroid.NewAssetID(0x1)
	source.put(agscID, agscType, encodeDefineIDs(1))

	atblID := retroid.NewAssetID(0x2)
	source.put(atblID, atblType, encodeDefineIDs(1))

	alwaysID, ok := retroid.Echoes.AlwaysLoadedAudioGroupDGRP()
	require.True(t, ok)
	d := &dgrp.Dgrp{DirectDependencies: []retroid.Dependency{retroid.NewDependency(agscType, agscID)}}
	dgrpData, err := dgrp.Build(retroid.Echoes, d)
	require.NoError(t, err)
	source.put(alwaysID, retroid.ParseAssetType("DGRP"), dgrpData)

	idx, err := Build(retroid.Echoes, source)
	require.NoError(t, err)

	dep, ok := idx.GetAudioGroupDependency(0)
	require.True(t, ok)
	assert.True(t, dep.ExcludeFromMLVL)
}

func TestBuildRejectsMultipleATBL(t *testing.T) {
	source := newFakeSource()
	source.put(retroid.NewAssetID(0x1), atblType, encodeDefineIDs())
	source.put(retroid.NewAssetID(0x2), atblType, encodeDefineIDs())

	_, err := Build(retroid.Echoes, source)
	assert.Error(t, err)
}
