package dataset

import (
	"errors"
	"fmt"
	"os"

	"github.com/cyclopcam/recycle/pkg/nn"
)

// Registry is the ordered, duplicate-free global class list.
// The position of a name is its global class index.
type Registry struct {
	names []string
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		index: map[string]int{},
	}
}

// Add appends name if it is not already present, and returns its global index
func (r *Registry) Add(name string) int {
	if idx, ok := r.index[name]; ok {
		return idx
	}
	r.index[name] = len(r.names)
	r.names = append(r.names, name)
	return len(r.names) - 1
}

// Index returns the global index of name
func (r *Registry) Index(name string) (int, bool) {
	idx, ok := r.index[name]
	return idx, ok
}

// Names returns a copy of the class list
func (r *Registry) Names() []string {
	return append([]string{}, r.names...)
}

func (r *Registry) Len() int {
	return len(r.names)
}

// ErrClassListUnreadable is returned by BuildIndexMap when classes.txt exists but can't be read
var ErrClassListUnreadable = errors.New("Unable to read classes.txt")

// IndexMap maps a folder's local class index to the global class index.
// Local indices whose class is missing from the registry have no entry.
type IndexMap map[int]int

// BuildRegistry reads every folder's classes.txt, and appends names in first-seen order.
// Folders without a class list, or with an unreadable one, contribute nothing.
// processFolder reports them when the folder is skipped.
// If Config.Classes is set, that list is the registry, and class files are not merged into it.
// Returns ErrNoClasses if the registry is empty.
func (u *Unifier) BuildRegistry(folders []MaterialFolder) (*Registry, error) {
	reg := NewRegistry()
	if len(u.Config.Classes) != 0 {
		for _, name := range u.Config.Classes {
			reg.Add(name)
		}
		return reg, nil
	}
	for _, folder := range folders {
		local, err := nn.LoadClassFile(folder.ClassFile())
		if err != nil {
			continue
		}
		for _, name := range local {
			reg.Add(name)
		}
	}
	if reg.Len() == 0 {
		return nil, ErrNoClasses
	}
	return reg, nil
}

// BuildIndexMap maps the folder's local class indices onto the registry.
// Returns (nil, nil) if the folder has no class list, and ErrClassListUnreadable if it has one
// that can't be read. Either way the folder must be skipped.
// A local class that is missing from the registry is a warning (or ErrStrictClass in strict mode),
// and its index is left out of the map.
func (u *Unifier) BuildIndexMap(folder MaterialFolder, reg *Registry) (IndexMap, error) {
	local, err := nn.LoadClassFile(folder.ClassFile())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassListUnreadable, err)
	}
	m := IndexMap{}
	for localIdx, name := range local {
		globalIdx, ok := reg.Index(name)
		if !ok {
			if u.Config.StrictClasses {
				return nil, fmt.Errorf("%w: '%v' from %v", ErrStrictClass, name, folder.Name)
			}
			u.warnf("Class '%v' from %v not in global list", name, folder.Name)
			continue
		}
		m[localIdx] = globalIdx
	}
	return m, nil
}
