package depgraph

import (
	"github.com/axiodl/retropak/retroid"
	"github.com/axiodl/retropak/scriptlayer"
)

// AreaDependencyBuilder assembles the full MLVL-facing dependency list for
// one MREA area: per-layer direct dependencies, the non-layer (geometry,
// portal area, static geometry map, path) dependencies, the
// generated_script_objects merge into each owning layer, and the hardcoded
// per-area augmentation table, all bucketed by layer and concatenated in
// layer-declaration order with the non-layer bucket last.
type AreaDependencyBuilder struct {
	scan scriptlayer.InstanceDependencyScanner
}

// NewAreaDependencyBuilder builds an area-level dependency assembler. scan
// is expected to return each instance's dependencies already fully
// resolved (as if each referenced asset had itself been passed through
// Engine.GetDependenciesForAsset) — the external property-scanning
// collaborator's responsibility, not this package's.
func NewAreaDependencyBuilder(scan scriptlayer.InstanceDependencyScanner) *AreaDependencyBuilder {
	return &AreaDependencyBuilder{scan: scan}
}

// Build computes the area's dependency list. layerNames must be in the
// same order as layers. nonLayerDeps are the already-resolved geometry /
// portal-area / static-geometry-map / path dependencies (§4.E's five typed
// conveniences feed this).
func (b *AreaDependencyBuilder) Build(
	game retroid.Game,
	mreaID retroid.AssetID,
	layerNames []string,
	layers []*scriptlayer.Layer,
	generated *scriptlayer.Layer,
	nonLayerDeps []retroid.Dependency,
) ([]retroid.Dependency, error) {
	buckets := make([][]retroid.Dependency, len(layers)+1)
	for i, layer := range layers {
		direct, err := layer.DependenciesFor(b.scan)
		if err != nil {
			return nil, err
		}
		buckets[i] = append([]retroid.Dependency{}, direct...)
	}

	nonLayer := append([]retroid.Dependency{}, nonLayerDeps...)
	if hc, ok := hardcodedDependencies[mreaAssetKey(mreaID)]; ok {
		if extra, ok := hc[NonLayerKey]; ok {
			nonLayer = append(nonLayer, extra...)
		}
	}
	buckets[len(layers)] = nonLayer

	if generated != nil {
		instances, err := generated.Instances()
		if err != nil {
			return nil, err
		}
		for _, inst := range instances {
			idx := inst.LayerIndex()
			if idx < 0 || idx >= len(layers) {
				continue
			}
			buckets[idx] = append(buckets[idx], b.scan(game, inst)...)
		}
	}

	for i := range buckets {
		buckets[i] = dedupePreserveOrder(buckets[i])
	}

	if hc, ok := hardcodedDependencies[mreaAssetKey(mreaID)]; ok {
		for layerName, missing := range hc {
			if layerName == NonLayerKey {
				continue
			}
			idx := indexOfName(layerNames, layerName)
			if idx < 0 {
				continue
			}
			buckets[idx] = append(buckets[idx], missing...)
		}
	}

	var flat []retroid.Dependency
	for _, b := range buckets {
		flat = append(flat, b...)
	}
	return flat, nil
}

func mreaAssetKey(id retroid.AssetID) uint32 {
	return uint32(id.Numeric)
}

func indexOfName(names []string, target string) int {
	for i, n := range names {
		if n == target {
			return i
		}
	}
	return -1
}

func dedupePreserveOrder(deps []retroid.Dependency) []retroid.Dependency {
	seen := make(map[retroid.Dependency]bool, len(deps))
	out := make([]retroid.Dependency, 0, len(deps))
	for _, d := range deps {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
