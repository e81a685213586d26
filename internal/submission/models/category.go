package models

import (
	"sort"

	dErrors "rekam/pkg/domain-errors"
)

// FieldKind selects the validation applied to a field.
type FieldKind string

const (
	KindText FieldKind = "text"
	KindNIK  FieldKind = "nik"
	KindDate FieldKind = "date"
	KindEnum FieldKind = "enum"
)

// Field describes one payload field of a category.
type Field struct {
	Key        string
	Label      string
	Kind       FieldKind
	Required   bool
	Searchable bool
	// Options lists the accepted values of an enum field.
	Options []string
	// OtherOption is the enum value that requires OtherField to be filled.
	OtherOption string
	OtherField  string
	// NotFuture rejects dates after the submission day.
	NotFuture bool
	// DefaultToday fills an empty date with the submission day.
	DefaultToday bool
}

// Category is a record category descriptor. Every category shares one lifecycle.
type Category struct {
	Name       string
	Title      string
	Fields     []Field
	OwnerField string
	// PrivilegedOverride lets admin and superuser edit or delete any owner's submission.
	PrivilegedOverride bool
}

// Field returns the descriptor for key.
func (c *Category) Field(key string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// SearchFields returns the keys matched by free-text search.
func (c *Category) SearchFields() []string {
	var keys []string
	for _, f := range c.Fields {
		if f.Searchable {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// companionOf reports whether key is the free-text companion of an enum field.
func (c *Category) companionOf(key string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Kind == KindEnum && f.OtherField == key {
			return f, true
		}
	}
	return Field{}, false
}

// IsCompanion reports whether key is only required when its enum picks the other option.
func (c *Category) IsCompanion(key string) bool {
	_, ok := c.companionOf(key)
	return ok
}

// Registry holds the known categories.
type Registry struct {
	byName map[string]*Category
}

// NewRegistry builds a registry from cats. Names must be unique.
func NewRegistry(cats ...*Category) *Registry {
	r := &Registry{byName: make(map[string]*Category, len(cats))}
	for _, c := range cats {
		if c.OwnerField == "" {
			c.OwnerField = OwnerField
		}
		r.byName[c.Name] = c
	}
	return r
}

// Lookup returns the category called name, or a not_found error.
func (r *Registry) Lookup(name string) (*Category, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown record category")
	}
	return c, nil
}

// All returns every category ordered by name.
func (r *Registry) All() []*Category {
	out := make([]*Category, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns every category name ordered.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name
	}
	return names
}
