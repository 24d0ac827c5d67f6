// Package depgraph implements §4.G: the transitive dependency engine. It
// resolves an asset id to the flat, post-order sequence of everything it
// depends on, using the cheat table ahead of a full parse where possible,
// caching every result it commits to, and applying the per-game
// MLVL-ignore override and the hardcoded per-area augmentation table.
package depgraph

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/axiodl/retropak/registry"
	"github.com/axiodl/retropak/retroid"
)

// AssetSource is the subset of the asset manager the engine needs: type
// lookup and raw-byte access. Declared here rather than imported from the
// root package to avoid a dependency cycle (root imports depgraph).
type AssetSource interface {
	GetAssetType(id retroid.AssetID) (retroid.AssetType, error)
	GetRawAsset(id retroid.AssetID) ([]byte, error)
}

var ancsType = retroid.ParseAssetType("ANCS")

type ancsKey struct {
	id             retroid.AssetID
	characterIndex int
}

// Engine resolves dependency edges for one game/asset-source pair, caching
// results for the lifetime of the session per invariant 5.
type Engine struct {
	game     retroid.Game
	registry *registry.Registry
	source   AssetSource
	log      zerolog.Logger

	cache     map[retroid.AssetID][]retroid.Dependency
	ancsCache map[ancsKey][]retroid.Dependency
	ignoreSet map[retroid.AssetID]bool

	// visiting holds the ids whose dependencies are being computed further
	// up the current recursion; a cycle back to one of them yields nothing.
	visiting map[retroid.AssetID]bool
}

// New builds a dependency engine over source, using reg to dispatch
// per-type parsing and cheat scanning.
func New(game retroid.Game, reg *registry.Registry, source AssetSource, log zerolog.Logger) *Engine {
	ignore := make(map[retroid.AssetID]bool)
	for _, id := range game.MLVLDependenciesToIgnore() {
		ignore[id] = true
	}
	return &Engine{
		game:      game,
		registry:  reg,
		source:    source,
		log:       log,
		cache:     make(map[retroid.AssetID][]retroid.Dependency),
		ancsCache: make(map[ancsKey][]retroid.Dependency),
		ignoreSet: ignore,
		visiting:  make(map[retroid.AssetID]bool),
	}
}

// GetDependenciesForAsset implements §4.G's public operation: an invalid
// id yields nothing; an unknown id either fails (mustExist) or yields
// nothing; otherwise the cached or freshly-computed post-order sequence
// is returned, always ending with the asset itself.
func (e *Engine) GetDependenciesForAsset(id retroid.AssetID, mustExist bool) ([]retroid.Dependency, error) {
	if !e.game.IsValid(id) {
		return nil, nil
	}

	assetType, err := e.source.GetAssetType(id)
	if err != nil {
		if !mustExist {
			return nil, nil
		}
		return nil, err
	}

	if cached, ok := e.cache[id]; ok {
		e.log.Debug().Str("asset", id.String()).Msg("dependency cache hit")
		return cached, nil
	}

	if e.visiting[id] {
		return nil, nil
	}
	e.visiting[id] = true
	children, err := e.childDependencies(id, assetType)
	delete(e.visiting, id)
	if err != nil {
		return nil, err
	}

	result := make([]retroid.Dependency, 0, len(children)+1)
	result = append(result, children...)
	result = append(result, e.applyOverride(retroid.NewDependency(assetType, id)))

	e.cache[id] = result
	e.log.Info().Str("asset", id.String()).Int("deps", len(result)).Msg("dependency rebuild")
	return result, nil
}

func (e *Engine) childDependencies(id retroid.AssetID, t retroid.AssetType) ([]retroid.Dependency, error) {
	if scan, ok := e.registry.Cheat(t); ok {
		data, err := e.source.GetRawAsset(id)
		if err != nil {
			return nil, err
		}
		deps, err := scan(e.game, data)
		if err != nil {
			return nil, errors.Wrapf(err, "depgraph: cheat scan %s", id)
		}
		return e.overrideAll(deps), nil
	}

	handler, ok := e.registry.Lookup(t)
	if !ok || handler.HasDependencies == nil || !handler.HasDependencies(e.game) {
		return nil, nil
	}

	data, err := e.source.GetRawAsset(id)
	if err != nil {
		return nil, err
	}
	parsed, err := handler.Parse(e.game, data)
	if err != nil {
		return nil, errors.Wrapf(err, "depgraph: parse %s", id)
	}
	src, ok := parsed.(registry.DependencySource)
	if !ok {
		return nil, nil
	}

	var out []retroid.Dependency
	for _, dep := range src.DependenciesFor() {
		grandchildren, err := e.GetDependenciesForAsset(dep.ID, false)
		if err != nil {
			return nil, err
		}
		out = append(out, grandchildren...)
	}
	return e.overrideAll(out), nil
}

func (e *Engine) applyOverride(dep retroid.Dependency) retroid.Dependency {
	if e.ignoreSet[dep.ID] {
		dep.ExcludeFromMLVL = true
	}
	return dep
}

func (e *Engine) overrideAll(deps []retroid.Dependency) []retroid.Dependency {
	for i := range deps {
		deps[i] = e.applyOverride(deps[i])
	}
	return deps
}

// GetDependenciesForANCS implements the ANCS-per-character variant: game
// special-case dependencies first, then the character-scoped dependency
// list (an external collaborator, supplied via characterDeps), then the
// ANCS asset itself.
func (e *Engine) GetDependenciesForANCS(id retroid.AssetID, characterIndex int, characterDeps func() ([]retroid.Dependency, error)) ([]retroid.Dependency, error) {
	assetType, err := e.source.GetAssetType(id)
	if err != nil {
		return nil, err
	}
	if assetType != ancsType {
		return nil, errors.Errorf("depgraph: asset %s is %s, not ANCS", id, assetType)
	}

	key := ancsKey{id: id, characterIndex: characterIndex}
	if cached, ok := e.ancsCache[key]; ok {
		return cached, nil
	}

	var result []retroid.Dependency
	result = append(result, e.game.SpecialANCSDependencies(id)...)

	charDeps, err := characterDeps()
	if err != nil {
		return nil, err
	}
	result = append(result, charDeps...)
	result = append(result, e.applyOverride(retroid.NewDependency(ancsType, id)))

	e.ancsCache[key] = result
	return result, nil
}
