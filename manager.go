// Package retropak implements §4.H: the asset manager. It indexes every
// PAK a FileProvider exposes, owns the modification and ensured-presence
// bookkeeping, and orchestrates the dependency engine and PAK codec on
// save. This is the orchestration layer every other package in this
// module exists to serve; it is grounded in asset_manager.py's
// AssetManager class, restructured around Go's explicit error returns in
// place of exceptions.
package retropak

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/axiodl/retropak/audio"
	"github.com/axiodl/retropak/config"
	"github.com/axiodl/retropak/depgraph"
	"github.com/axiodl/retropak/pak"
	"github.com/axiodl/retropak/provider"
	"github.com/axiodl/retropak/registry"
	"github.com/axiodl/retropak/retroid"
)

const customNamesFile = "custom_names.json"

// modEntry is one slot of the modification map: either a replacement
// RawResource, or a tombstone marking the asset for deletion on save.
type modEntry struct {
	resource  registry.RawResource
	tombstone bool
}

// AssetManager is the orchestrator described by §4.H. Build one with New,
// then query and mutate it; call SaveModifications to flush changes to an
// output root.
type AssetManager struct {
	provider provider.FileProvider
	game     retroid.Game
	registry *registry.Registry
	log      zerolog.Logger
	tunables config.Tunables

	allPaks         []string
	paksForAssetID  map[retroid.AssetID]map[string]bool
	typesForAssetID map[retroid.AssetID]retroid.AssetType
	ensuredAssetIDs map[string]map[retroid.AssetID]bool
	modifiedResources map[retroid.AssetID]modEntry
	inMemoryPaks    map[string]*pak.Pak
	customAssetIDs  map[string]retroid.AssetID
	nextGeneratedID uint64

	engine *depgraph.Engine
	audio  *audio.Index
}

// New builds an AssetManager over p, eagerly scanning every PAK header it
// finds. Bodies are read lazily. log may be the zero value, which is a
// disabled logger.
func New(p provider.FileProvider, game retroid.Game, reg *registry.Registry, log zerolog.Logger, tunables config.Tunables) (*AssetManager, error) {
	m := &AssetManager{
		provider:        p,
		game:            game,
		registry:        reg,
		log:             log,
		tunables:        tunables,
		inMemoryPaks:    make(map[string]*pak.Pak),
		modifiedResources: make(map[retroid.AssetID]modEntry),
		nextGeneratedID: tunables.GeneratedIDSeed,
	}

	if err := m.updateHeaders(); err != nil {
		return nil, err
	}

	m.engine = depgraph.New(game, reg, m, log)

	if game == retroid.Echoes {
		idx, err := audio.Build(game, m)
		if err != nil {
			return nil, errors.Wrap(err, "retropak: build audio index")
		}
		m.audio = idx
	}

	return m, nil
}

func (m *AssetManager) updateHeaders() error {
	m.ensuredAssetIDs = make(map[string]map[retroid.AssetID]bool)
	m.paksForAssetID = make(map[retroid.AssetID]map[string]bool)
	m.typesForAssetID = make(map[retroid.AssetID]retroid.AssetType)
	m.customAssetIDs = make(map[string]retroid.AssetID)

	if m.provider.IsFile(customNamesFile) {
		f, err := m.provider.OpenBinary(customNamesFile)
		if err != nil {
			return errors.Wrap(err, "retropak: open custom_names.json")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return errors.Wrap(err, "retropak: read custom_names.json")
		}
		var raw map[string]uint64
		if err := json.Unmarshal(data, &raw); err != nil {
			return errors.Wrap(err, "retropak: parse custom_names.json")
		}
		for name, id := range raw {
			m.customAssetIDs[name] = retroid.NewAssetID(id)
		}
	}

	names, err := m.provider.Rglob("*.pak")
	if err != nil {
		return errors.Wrap(err, "retropak: glob pak files")
	}
	sort.Strings(names)
	m.allPaks = names

	for _, name := range names {
		f, err := m.provider.OpenBinary(name)
		if err != nil {
			return errors.Wrapf(err, "retropak: open %s", name)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "retropak: read %s", name)
		}
		info, err := pak.HeaderParse(m.game, data)
		if err != nil {
			return WrapCodecError(name, err)
		}
		m.ensuredAssetIDs[name] = make(map[retroid.AssetID]bool)
		for _, id := range info.Order {
			if m.paksForAssetID[id] == nil {
				m.paksForAssetID[id] = make(map[string]bool)
			}
			m.paksForAssetID[id][name] = true
			m.typesForAssetID[id] = info.Types[id]
		}
	}
	return nil
}

// AllAssetIDs returns every asset id known to the header index.
func (m *AssetManager) AllAssetIDs() []retroid.AssetID {
	out := make([]retroid.AssetID, 0, len(m.paksForAssetID))
	for id := range m.paksForAssetID {
		out = append(out, id)
	}
	return out
}

// FindPaks yields the names of every PAK containing id.
func (m *AssetManager) FindPaks(id retroid.AssetID) ([]string, error) {
	paks, ok := m.paksForAssetID[id]
	if !ok {
		return nil, &UnknownAssetError{ID: id}
	}
	out := make([]string, 0, len(paks))
	for name := range paks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// DoesAssetExist reports whether id is present and not tombstoned.
func (m *AssetManager) DoesAssetExist(id retroid.AssetID) bool {
	if entry, ok := m.modifiedResources[id]; ok {
		return !entry.tombstone
	}
	_, ok := m.paksForAssetID[id]
	return ok
}

// GetAssetType returns id's type, preferring the modification map.
func (m *AssetManager) GetAssetType(id retroid.AssetID) (retroid.AssetType, error) {
	if entry, ok := m.modifiedResources[id]; ok {
		if entry.tombstone {
			return retroid.AssetType{}, ErrDeletedAsset
		}
		return entry.resource.Type, nil
	}
	t, ok := m.typesForAssetID[id]
	if !ok {
		return retroid.AssetType{}, &UnknownAssetError{ID: id}
	}
	return t, nil
}

// GetRawAsset returns id's bytes, preferring the modification map and
// otherwise the first PAK it is found in.
func (m *AssetManager) GetRawAsset(id retroid.AssetID) ([]byte, error) {
	res, err := m.GetRawResource(id)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// GetRawResource returns id's (type, bytes) pair, matching §3's
// RawResource data model.
func (m *AssetManager) GetRawResource(id retroid.AssetID) (registry.RawResource, error) {
	if entry, ok := m.modifiedResources[id]; ok {
		if entry.tombstone {
			return registry.RawResource{}, ErrDeletedAsset
		}
		return entry.resource, nil
	}

	paks, ok := m.paksForAssetID[id]
	if !ok {
		return registry.RawResource{}, &UnknownAssetError{ID: id}
	}
	for name := range paks {
		p, err := m.getPak(name)
		if err != nil {
			return registry.RawResource{}, err
		}
		if t, data, ok := p.GetAsset(id); ok {
			return registry.RawResource{Type: t, Data: data}, nil
		}
	}
	return registry.RawResource{}, &UnknownAssetError{ID: id}
}

// GetParsedAsset resolves id's type via the registry and parses its
// bytes. If typeHint is non-nil and doesn't match, it fails.
func (m *AssetManager) GetParsedAsset(id retroid.AssetID, typeHint *retroid.AssetType) (any, error) {
	res, err := m.GetRawResource(id)
	if err != nil {
		return nil, err
	}
	if typeHint != nil && *typeHint != res.Type {
		return nil, errors.Errorf("retropak: type_hint was %s, pak listed %s", typeHint, res.Type)
	}
	handler, ok := m.registry.Lookup(res.Type)
	if !ok || handler.Parse == nil {
		return nil, errors.Errorf("retropak: no parser registered for %s", res.Type)
	}
	parsed, err := handler.Parse(m.game, res.Data)
	if err != nil {
		return nil, WrapCodecError(id.String(), err)
	}
	return parsed, nil
}

// GenerateAssetID returns a fresh id, advancing the counter past any
// collisions against known or tombstoned ids.
func (m *AssetManager) GenerateAssetID() retroid.AssetID {
	id := retroid.NewAssetID(m.nextGeneratedID)
	for {
		_, known := m.paksForAssetID[id]
		_, modified := m.modifiedResources[id]
		if !known && !modified {
			break
		}
		id = retroid.NewAssetID(id.Numeric + 1)
	}
	m.nextGeneratedID = id.Numeric + 1
	return id
}

// RegisterCustomAssetName binds name to id. Fails if id already exists or
// name is already bound to a different id.
func (m *AssetManager) RegisterCustomAssetName(name string, id retroid.AssetID) error {
	if m.DoesAssetExist(id) {
		return errors.Wrapf(ErrAssetAlreadyExists, "%s (%s)", id, name)
	}
	if existing, ok := m.customAssetIDs[name]; ok && existing != id {
		return errors.Wrapf(ErrDuplicateName, "%s", name)
	}
	m.customAssetIDs[name] = id
	return nil
}

// AddNewAsset registers a fresh asset: id must not already exist. It
// inserts the resource into the modification map and index, then ensures
// it is present in every named PAK.
func (m *AssetManager) AddNewAsset(name string, id retroid.AssetID, t retroid.AssetType, data []byte, inPaks []string) error {
	if m.DoesAssetExist(id) {
		return errors.Wrapf(ErrAssetAlreadyExists, "%s (%s)", id, name)
	}
	m.customAssetIDs[name] = id
	if m.paksForAssetID[id] == nil {
		m.paksForAssetID[id] = make(map[string]bool)
	}
	m.modifiedResources[id] = modEntry{resource: registry.RawResource{Type: t, Data: data}}

	for _, pakName := range inPaks {
		if err := m.EnsurePresent(pakName, id); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceAsset overwrites an existing asset's bytes in the modification
// map. id must already exist.
func (m *AssetManager) ReplaceAsset(id retroid.AssetID, t retroid.AssetType, data []byte) error {
	if !m.DoesAssetExist(id) {
		return &UnknownAssetError{ID: id}
	}
	m.modifiedResources[id] = modEntry{resource: registry.RawResource{Type: t, Data: data}}
	return nil
}

// DeleteAsset tombstones id and removes it from every ensured set.
func (m *AssetManager) DeleteAsset(id retroid.AssetID) error {
	if !m.DoesAssetExist(id) {
		return &UnknownAssetError{ID: id}
	}
	m.modifiedResources[id] = modEntry{tombstone: true}
	for _, ensured := range m.ensuredAssetIDs {
		delete(ensured, id)
	}
	return nil
}

// EnsurePresent requires id to exist, then ensures pak contains it
// (directly or via ensured_asset_ids), recursing into id's dependencies so
// they are ensured in the same PAK. Idempotent.
func (m *AssetManager) EnsurePresent(pakName string, id retroid.AssetID) error {
	ensured, ok := m.ensuredAssetIDs[pakName]
	if !ok {
		return &UnknownPakError{Name: pakName}
	}
	if !m.DoesAssetExist(id) {
		return &UnknownAssetError{ID: id}
	}

	if !m.paksForAssetID[id][pakName] {
		ensured[id] = true
	}

	deps, err := m.engine.GetDependenciesForAsset(id, false)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if dep.ID == id {
			continue
		}
		if err := m.EnsurePresent(pakName, dep.ID); err != nil {
			return err
		}
	}
	return nil
}

func (m *AssetManager) getPak(name string) (*pak.Pak, error) {
	if _, ok := m.ensuredAssetIDs[name]; !ok {
		return nil, &UnknownPakError{Name: name}
	}
	if p, ok := m.inMemoryPaks[name]; ok {
		return p, nil
	}
	f, err := m.provider.OpenBinary(name)
	if err != nil {
		return nil, errors.Wrapf(err, "retropak: open %s", name)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "retropak: read %s", name)
	}
	m.log.Info().Str("pak", name).Msg("reading pak")
	p, err := pak.Parse(m.game, data)
	if err != nil {
		return nil, WrapCodecError(name, err)
	}
	m.inMemoryPaks[name] = p
	return p, nil
}

// SaveModifications implements §4.H's save algorithm: it writes every
// touched PAK (one holding a modified asset, or one with a non-empty
// ensured set) to outRoot, writes custom_names.json, then clears the
// modification map and re-scans headers against outRoot.
func (m *AssetManager) SaveModifications(out provider.FileProvider, writeFile func(name string, data []byte) error) error {
	touched := make(map[string]bool)
	for id := range m.modifiedResources {
		for name := range m.paksForAssetID[id] {
			touched[name] = true
		}
	}
	for name, ensured := range m.ensuredAssetIDs {
		if len(ensured) > 0 {
			touched[name] = true
		}
	}

	for name := range touched {
		if _, err := m.getPak(name); err != nil {
			return err
		}
	}

	assetsToCopy := make(map[retroid.AssetID]registry.RawResource)
	for _, ensured := range m.ensuredAssetIDs {
		for id := range ensured {
			if _, ok := assetsToCopy[id]; ok {
				continue
			}
			res, err := m.GetRawResource(id)
			if err != nil {
				return err
			}
			assetsToCopy[id] = res
		}
	}

	for name := range touched {
		m.log.Info().Str("pak", name).Msg("updating pak")
		p := m.inMemoryPaks[name]
		delete(m.inMemoryPaks, name)

		for id, entry := range m.modifiedResources {
			if !m.paksForAssetID[id][name] {
				continue
			}
			if entry.tombstone {
				p.RemoveAsset(id)
			} else if err := p.ReplaceAsset(id, entry.resource.Data); err != nil {
				return err
			}
		}

		for id := range m.ensuredAssetIDs[name] {
			res := assetsToCopy[id]
			if err := p.AddAsset(res.Type, id, res.Data); err != nil {
				return err
			}
		}

		built, err := p.Build(m.tunables.BlockSizeLimit, m.tunables.CompressedBufferBonus)
		if err != nil {
			return WrapCodecError(name, err)
		}
		if err := writeFile(name, built); err != nil {
			return err
		}
	}

	if err := m.writeCustomNames(writeFile); err != nil {
		return err
	}

	m.modifiedResources = make(map[retroid.AssetID]modEntry)
	m.provider = out
	return m.updateHeaders()
}

func (m *AssetManager) writeCustomNames(writeFile func(name string, data []byte) error) error {
	names := make([]string, 0, len(m.customAssetIDs))
	for name := range m.customAssetIDs {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make(map[string]uint64, len(names))
	for _, name := range names {
		ordered[name] = m.customAssetIDs[name].Numeric
	}
	data, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return errors.Wrap(err, "retropak: marshal custom_names.json")
	}
	return writeFile(customNamesFile, data)
}

// GetAudioGroupDependency exposes §4.I's index, a no-op miss for games
// other than Echoes.
func (m *AssetManager) GetAudioGroupDependency(soundID uint32) (retroid.Dependency, bool) {
	if m.audio == nil {
		return retroid.Dependency{}, false
	}
	return m.audio.GetAudioGroupDependency(soundID)
}

// GetDependenciesForAsset exposes the dependency engine to callers.
func (m *AssetManager) GetDependenciesForAsset(id retroid.AssetID, mustExist bool) ([]retroid.Dependency, error) {
	return m.engine.GetDependenciesForAsset(id, mustExist)
}
