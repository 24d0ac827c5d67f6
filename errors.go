package retropak

import (
	"fmt"

	"github.com/pkg/errors"
)

// Lookup errors (§7). These are raised synchronously and never cached.

// UnknownAssetError reports a reference to an asset id the manager has
// never indexed.
type UnknownAssetError struct {
	ID   fmt.Stringer
	Name string
}

func (e *UnknownAssetError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("retropak: unknown asset id %s (%s)", e.ID, e.Name)
	}
	return fmt.Sprintf("retropak: unknown asset id %s", e.ID)
}

// UnknownPakError reports a reference to a PAK name the manager does not
// know about.
type UnknownPakError struct {
	Name string
}

func (e *UnknownPakError) Error() string {
	return fmt.Sprintf("retropak: unknown pak %q", e.Name)
}

// Policy errors (§7).

var (
	// ErrDeletedAsset is returned when reading an asset id that has been
	// tombstoned in the modification map.
	ErrDeletedAsset = errors.New("retropak: asset has been deleted")

	// ErrDuplicateName is returned when an alias is registered to a
	// different asset id than one it is already bound to.
	ErrDuplicateName = errors.New("retropak: custom asset name already bound to a different id")

	// ErrAssetAlreadyExists is returned when add_new_asset targets an id
	// that already exists.
	ErrAssetAlreadyExists = errors.New("retropak: asset already exists")

	// ErrInvalidImage names the condition of a file that cannot be
	// interpreted as a GameCube/Wii disc, or has no data partition. The
	// providers in package provider do not return it: provider.OpenISO
	// reports those cases with its own error values.
	ErrInvalidImage = errors.New("retropak: not a valid GameCube/Wii disc image")
)

// SizeMismatchError is the decompression sanity check from §6: the
// decompressed byte count did not match the header's declared size.
type SizeMismatchError struct {
	Expected int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("retropak: size mismatch: expected %d bytes, got %d", e.Expected, e.Actual)
}

// CodecError wraps a decoding failure (malformed header, magic mismatch,
// version outside enum, ...) with the path/offset context the caller
// needs to locate it, per §7.
type CodecError struct {
	Path   string
	Reason error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("retropak: codec error in %s: %v", e.Path, e.Reason)
}

func (e *CodecError) Unwrap() error {
	return e.Reason
}

// WrapCodecError attaches path context to a lower-level decoding error,
// matching the codec packages' use of github.com/pkg/errors for the same
// purpose internally.
func WrapCodecError(path string, err error) error {
	if err == nil {
		return nil
	}
	return &CodecError{Path: path, Reason: errors.WithStack(err)}
}
