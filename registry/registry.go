// Package registry implements §4.B: a static mapping from 4-character
// resource type tags to codec descriptors. It is the same pattern the
// teacher package uses for sound formats (sound.RegisterFormat/sniff,
// itself mirroring the standard library's image.RegisterFormat), generalized
// from magic-byte sniffing to tag-keyed dispatch since PAK entries already
// carry their type tag.
package registry

import (
	"github.com/axiodl/retropak/retroid"
)

// RawResource is the canonical in-memory representation of a resource
// whose typed parser has not (or need not) be invoked: its type tag plus
// undecoded bytes.
type RawResource struct {
	Type retroid.AssetType
	Data []byte
}

// DependencySource is implemented by a parsed resource that can enumerate
// the other assets it references.
type DependencySource interface {
	DependenciesFor() []retroid.Dependency
}

// Parser decodes raw bytes into a typed resource. What that resource is
// exactly is opaque to the registry; callers type-assert against the
// concrete type they expect, same as the `any` results of sound.Decode in
// the teacher package.
type Parser func(game retroid.Game, data []byte) (any, error)

// Builder re-encodes a typed resource (as returned by the matching Parser)
// back into bytes.
type Builder func(game retroid.Game, value any) ([]byte, error)

// Handler describes everything the core needs to know about a resource
// type without parsing it: whether it is structurally capable of having
// dependencies for a given game (letting the dependency engine skip a full
// parse when it can't), and how to parse/build it when required.
type Handler struct {
	Type            retroid.AssetType
	Parse           Parser
	Build           Builder
	HasDependencies func(game retroid.Game) bool
}

// CheatScanner computes dependencies directly from raw bytes without a full
// parse, for types in the "cheat table" (§4.G, §9 glossary "Cheated
// dependencies"). Used as a bulk-performance optimization ahead of the
// full parser path.
type CheatScanner func(game retroid.Game, data []byte) ([]retroid.Dependency, error)

// Registry is a static table of resource type handlers, keyed by their
// interned 4-byte tag per §9's design note. Types absent from the table
// are treated as opaque byte blobs; types present in cheats are consulted
// before falling back to a handler's full parser.
type Registry struct {
	handlers map[retroid.AssetType]Handler
	cheats   map[retroid.AssetType]CheatScanner
}

// New returns an empty registry. Use Register/RegisterCheat to populate it,
// or NewDefault for the set of types this module implements in full.
func New() *Registry {
	return &Registry{
		handlers: make(map[retroid.AssetType]Handler),
		cheats:   make(map[retroid.AssetType]CheatScanner),
	}
}

// Register adds or replaces the handler for h.Type.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Type] = h
}

// RegisterCheat adds a byte-level dependency scanner for t, used by the
// dependency engine in place of a full parse.
func (r *Registry) RegisterCheat(t retroid.AssetType, scan CheatScanner) {
	r.cheats[t] = scan
}

// Lookup returns the handler registered for t, if any.
func (r *Registry) Lookup(t retroid.AssetType) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// Cheat returns the byte-level dependency scanner registered for t, if
// t is in the cheat table.
func (r *Registry) Cheat(t retroid.AssetType) (CheatScanner, bool) {
	c, ok := r.cheats[t]
	return c, ok
}

// HasDependencies reports whether a resource of type t can structurally
// reference other assets under the given game, consulting the cheat table
// first and then the registered handler. Types with neither a cheat nor a
// handler (opaque blobs) never have dependencies.
func (r *Registry) HasDependencies(game retroid.Game, t retroid.AssetType) bool {
	if _, ok := r.cheats[t]; ok {
		return true
	}
	if h, ok := r.handlers[t]; ok && h.HasDependencies != nil {
		return h.HasDependencies(game)
	}
	return false
}
