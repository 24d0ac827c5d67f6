// Package scriptlayer implements §4.F: the per-layer script instance
// accessor that sits on top of an MREA's script_layers and
// generated_script_objects section groups (package mrea). Instance
// property parsing and per-type dependency extraction are external
// collaborators; this package only knows the instance envelope (id, type,
// properties blob, connection list) and the layer container around it.
package scriptlayer

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/axiodl/retropak/retroid"
)

// Connection is one outgoing link from a script instance: on receiving a
// message in State, send Message to the instance named TargetID.
type Connection struct {
	State    retroid.AssetType
	Message  retroid.AssetType
	TargetID uint32
}

// Instance is a single script object: its instance id (which, for
// generated_script_objects members, also encodes the owning layer), its
// 4-character script object type, its opaque property blob, and its
// connection list.
type Instance struct {
	ID          uint32
	Type        retroid.AssetType
	Properties  []byte
	Connections []Connection
}

// LayerIndex extracts the owning layer index encoded in a
// generated_script_objects instance id: its top six bits (ID >> 26).
func (i Instance) LayerIndex() int {
	return int(i.ID >> 26)
}

// InstanceDependencyScanner is the external collaborator the dependency
// engine (package depgraph) supplies: it knows how to read an instance's
// Properties blob for a given script object Type and yield the assets it
// references.
type InstanceDependencyScanner func(game retroid.Game, inst Instance) []retroid.Dependency

// Layer is one script layer: a named, ordered list of instances, parsed
// lazily from its raw section bytes on first access.
type Layer struct {
	Name  string
	Index int

	game      retroid.Game
	raw       []byte
	instances []Instance
	parsed    bool
	modified  bool
}

// NewLayer wraps a layer's raw section bytes. Parsing is deferred until
// Instances is first called.
func NewLayer(name string, index int, raw []byte, game retroid.Game) *Layer {
	return &Layer{Name: name, Index: index, game: game, raw: raw}
}

// Modified reports whether this layer has been mutated since it was
// loaded, via AppendInstance or RemoveInstance.
func (l *Layer) Modified() bool {
	return l.modified
}

// Instances returns the layer's script instances, parsing its raw bytes
// on first call.
func (l *Layer) Instances() ([]Instance, error) {
	if l.parsed {
		return l.instances, nil
	}
	instances, err := decodeInstances(l.raw)
	if err != nil {
		return nil, errors.Wrapf(err, "scriptlayer: layer %q", l.Name)
	}
	l.instances = instances
	l.parsed = true
	return l.instances, nil
}

// AppendInstance adds inst to the end of the layer and marks it modified.
func (l *Layer) AppendInstance(inst Instance) error {
	if _, err := l.Instances(); err != nil {
		return err
	}
	l.instances = append(l.instances, inst)
	l.modified = true
	return nil
}

// RemoveInstance deletes the instance with the given id, reporting
// whether it was present.
func (l *Layer) RemoveInstance(id uint32) (bool, error) {
	instances, err := l.Instances()
	if err != nil {
		return false, err
	}
	for i, inst := range instances {
		if inst.ID == id {
			l.instances = append(instances[:i], instances[i+1:]...)
			l.modified = true
			return true, nil
		}
	}
	return false, nil
}

// DependenciesFor enumerates every dependency referenced by this layer's
// instances, in instance order, using scan to resolve each instance's
// property blob.
func (l *Layer) DependenciesFor(scan InstanceDependencyScanner) ([]retroid.Dependency, error) {
	instances, err := l.Instances()
	if err != nil {
		return nil, err
	}
	var deps []retroid.Dependency
	for _, inst := range instances {
		deps = append(deps, scan(l.game, inst)...)
	}
	return deps, nil
}

// Encode re-serializes the layer back into raw section bytes.
func (l *Layer) Encode() ([]byte, error) {
	instances, err := l.Instances()
	if err != nil {
		return nil, err
	}
	return encodeInstances(instances)
}

func decodeInstances(raw []byte) ([]Instance, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	r := bytes.NewReader(raw)
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "read instance count")
	}

	instances := make([]Instance, 0, count)
	for i := uint32(0); i < count; i++ {
		var tag [4]byte
		if _, err := r.Read(tag[:]); err != nil {
			return nil, errors.Wrapf(err, "read instance %d type", i)
		}
		var size uint32
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return nil, errors.Wrapf(err, "read instance %d size", i)
		}
		body := make([]byte, size)
		if _, err := r.Read(body); err != nil {
			return nil, errors.Wrapf(err, "read instance %d body", i)
		}

		br := bytes.NewReader(body)
		var id uint32
		if err := binary.Read(br, binary.BigEndian, &id); err != nil {
			return nil, errors.Wrapf(err, "read instance %d id", i)
		}
		var linkCount uint32
		if err := binary.Read(br, binary.BigEndian, &linkCount); err != nil {
			return nil, errors.Wrapf(err, "read instance %d link count", i)
		}
		links := make([]Connection, 0, linkCount)
		for j := uint32(0); j < linkCount; j++ {
			var state, message [4]byte
			var target uint32
			if _, err := br.Read(state[:]); err != nil {
				return nil, errors.Wrapf(err, "read instance %d link %d state", i, j)
			}
			if _, err := br.Read(message[:]); err != nil {
				return nil, errors.Wrapf(err, "read instance %d link %d message", i, j)
			}
			if err := binary.Read(br, binary.BigEndian, &target); err != nil {
				return nil, errors.Wrapf(err, "read instance %d link %d target", i, j)
			}
			links = append(links, Connection{State: retroid.AssetType(state), Message: retroid.AssetType(message), TargetID: target})
		}
		props := make([]byte, br.Len())
		if _, err := br.Read(props); err != nil && br.Len() != 0 {
			return nil, errors.Wrapf(err, "read instance %d properties", i)
		}

		instances = append(instances, Instance{ID: id, Type: retroid.AssetType(tag), Properties: props, Connections: links})
	}
	return instances, nil
}

func encodeInstances(instances []Instance) ([]byte, error) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, uint32(len(instances)))
	for _, inst := range instances {
		body := new(bytes.Buffer)
		binary.Write(body, binary.BigEndian, inst.ID)
		binary.Write(body, binary.BigEndian, uint32(len(inst.Connections)))
		for _, c := range inst.Connections {
			body.Write(c.State[:])
			body.Write(c.Message[:])
			binary.Write(body, binary.BigEndian, c.TargetID)
		}
		body.Write(inst.Properties)

		buf.Write(inst.Type[:])
		binary.Write(buf, binary.BigEndian, uint32(body.Len()))
		buf.Write(body.Bytes())
	}
	return buf.Bytes(), nil
}
