package connector

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"moff.io/wallet-modal/pkg/errors"
)

// Registry is the immutable, ordered set of connectors offered to a user.
type Registry struct {
	entries *linkedhashmap.Map
}

// NewRegistry validates every descriptor and keeps them in the given order.
func NewRegistry(descriptors ...*Descriptor) (*Registry, error) {
	entries := linkedhashmap.New()
	for i, d := range descriptors {
		if err := validate(i, d); err != nil {
			return nil, err
		}
		if _, found := entries.Get(d.ID); found {
			return nil, &ValidationError{Index: i, ID: d.ID, Field: "id (duplicate)"}
		}
		entries.Put(d.ID, d)
	}
	return &Registry{entries: entries}, nil
}

func validate(i int, d *Descriptor) error {
	if d == nil {
		return &ValidationError{Index: i, Field: "descriptor"}
	}
	switch {
	case d.ID == "":
		return &ValidationError{Index: i, Field: "id"}
	case d.Display == nil:
		return &ValidationError{Index: i, ID: d.ID, Field: "display"}
	case d.Display.Logo == "":
		return &ValidationError{Index: i, ID: d.ID, Field: "display.logo"}
	case d.Display.Name == "":
		return &ValidationError{Index: i, ID: d.ID, Field: "display.name"}
	case d.Display.Description == "":
		return &ValidationError{Index: i, ID: d.ID, Field: "display.description"}
	case d.Connect == nil:
		return &ValidationError{Index: i, ID: d.ID, Field: "connect"}
	}
	return nil
}

// Lookup returns the descriptor registered under id.
func (r *Registry) Lookup(id string) (*Descriptor, bool) {
	v, found := r.entries.Get(id)
	if !found {
		return nil, false
	}
	return v.(*Descriptor), true
}

// List returns the descriptors in registration order.
func (r *Registry) List() []*Descriptor {
	values := r.entries.Values()
	list := make([]*Descriptor, len(values))
	for i, v := range values {
		list[i] = v.(*Descriptor)
	}
	return list
}

// At returns the descriptor at index in List order.
func (r *Registry) At(index int) (*Descriptor, error) {
	if index < 0 || index >= r.entries.Size() {
		return nil, errors.Errorf("connector index %d out of range [0,%d)", index, r.entries.Size())
	}
	return r.List()[index], nil
}

func (r *Registry) Len() int {
	return r.entries.Size()
}
