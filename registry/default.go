package registry

import (
	"github.com/axiodl/retropak/formats/dgrp"
	"github.com/axiodl/retropak/formats/mapw"
	"github.com/axiodl/retropak/retroid"
)

// NewDefault returns a Registry populated with every resource type this
// module implements in full: MAPW and DGRP. Every other type is treated
// as an opaque byte blob unless the caller registers its own handler or
// cheat scanner.
func NewDefault() *Registry {
	r := New()
	r.Register(Handler{
		Type:            retroid.ParseAssetType("MAPW"),
		Parse:           mapw.Parse,
		Build:           mapw.Build,
		HasDependencies: mapw.HasDependencies,
	})
	r.Register(Handler{
		Type:            retroid.ParseAssetType("DGRP"),
		Parse:           dgrp.Parse,
		Build:           dgrp.Build,
		HasDependencies: dgrp.HasDependencies,
	})
	return r
}
