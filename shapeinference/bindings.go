package shapeinference

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Bindings maps symbolic dimension names to concrete extents.
// Typically it comes from a batch-size override given by the caller of the conversion.
type Bindings map[string]int64

// Key returns a canonical representation of the bindings, usable as a map key.
// Format: "name1=val1,name2=val2" with names sorted alphabetically; "" for empty or nil bindings.
func (b Bindings) Key() string {
	if len(b) == 0 {
		return ""
	}
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, b[name])
	}
	return strings.Join(parts, ",")
}

// Clone returns a copy of the bindings.
func (b Bindings) Clone() Bindings {
	if b == nil {
		return nil
	}
	clone := make(Bindings, len(b))
	for name, extent := range b {
		clone[name] = extent
	}
	return clone
}

// Merge adds the bindings from other into b.
// It returns an error if the same name is bound to different extents.
func (b Bindings) Merge(other Bindings) error {
	for name, extent := range other {
		if existing, found := b[name]; found && existing != extent {
			return errors.Errorf("conflicting values for symbolic dimension %q: %d vs %d", name, existing, extent)
		}
		b[name] = extent
	}
	return nil
}

// Validate checks that every binding has a non-empty name and a non-negative extent.
func (b Bindings) Validate() error {
	for name, extent := range b {
		if name == "" {
			return errors.New("symbolic dimension bindings cannot have an empty name")
		}
		if extent < 0 {
			return errors.Errorf("symbolic dimension %q bound to negative extent %d", name, extent)
		}
	}
	return nil
}
