package nodetypes

import (
	"cmp"
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/pitabwire/flowdeck/model"
)

// snapshot is an immutable set of node types indexed by name.
type snapshot struct {
	byName   map[string]model.NodeTypeDescription
	sorted   []model.NodeTypeDescription
	checksum string
}

// Registry is a read-optimized, thread-safe store of the loaded node types.
// It uses atomic pointer swap for lock-free concurrent reads.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry from the given files.
func NewRegistry(files []File) *Registry {
	r := &Registry{}
	r.Replace(files)
	return r
}

// Replace atomically swaps the registry contents with a new snapshot built
// from the given files. When a name repeats the first declaration wins.
func (r *Registry) Replace(files []File) {
	s := &snapshot{byName: make(map[string]model.NodeTypeDescription)}

	var checksumParts []string
	for _, f := range files {
		checksumParts = append(checksumParts, f.Checksum)
		for _, nt := range f.NodeTypes {
			if _, dup := s.byName[nt.Name]; dup {
				continue
			}
			s.byName[nt.Name] = nt
			s.sorted = append(s.sorted, nt)
		}
	}

	slices.SortFunc(s.sorted, func(a, b model.NodeTypeDescription) int {
		return cmp.Compare(a.Name, b.Name)
	})

	slices.Sort(checksumParts)
	combined := strings.Join(checksumParts, ":")
	s.checksum = fmt.Sprintf("%x", sha256.Sum256([]byte(combined)))

	r.snap.Store(s)
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// Get returns the node type with the given name.
func (r *Registry) Get(name string) (model.NodeTypeDescription, bool) {
	nt, ok := r.current().byName[name]
	return nt, ok
}

// All returns every node type sorted by name. The slice is a copy.
func (r *Registry) All() []model.NodeTypeDescription {
	return slices.Clone(r.current().sorted)
}

// Len returns the number of node types.
func (r *Registry) Len() int {
	return len(r.current().sorted)
}

// Checksum returns the combined checksum of all loaded files.
func (r *Registry) Checksum() string {
	return r.current().checksum
}

// Loaded reports whether at least one node type is registered.
func (r *Registry) Loaded() bool {
	return r.Len() > 0
}
