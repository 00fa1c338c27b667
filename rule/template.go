// Package rule implements the forward-chaining rule engine: typed
// fact templates, a working memory of fact handles, and salience-
// ordered incremental firing of rules loaded from GRL text.
package rule

import (
	"fmt"
	"sync"
)

// FieldType constrains a template field to one scalar type.
type FieldType int

const (
	FieldFloat FieldType = iota
	FieldInt
	FieldString
	FieldBool
)

// String implements fmt.Stringer.
func (ft FieldType) String() string {
	switch ft {
	case FieldInt:
		return "int"
	case FieldString:
		return "string"
	case FieldBool:
		return "bool"
	default:
		return "float"
	}
}

// Template declares the typed fields a fact of its kind must carry.
type Template struct {
	Name   string
	fields map[string]FieldType
}

// Fields returns the declared field names and types.
func (t *Template) Fields() map[string]FieldType {
	out := make(map[string]FieldType, len(t.fields))
	for k, v := range t.fields {
		out[k] = v
	}
	return out
}

// validate type-checks and normalizes an incoming field set: ints are
// accepted into float fields, every declared field must be present,
// and undeclared fields are rejected.
func (t *Template) validate(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for name, ft := range t.fields {
		v, ok := fields[name]
		if !ok {
			return nil, fmt.Errorf("template %q: missing field %q", t.Name, name)
		}
		norm, err := coerce(v, ft)
		if err != nil {
			return nil, fmt.Errorf("template %q field %q: %w", t.Name, name, err)
		}
		out[name] = norm
	}
	for name := range fields {
		if _, ok := t.fields[name]; !ok {
			return nil, fmt.Errorf("template %q: undeclared field %q", t.Name, name)
		}
	}
	return out, nil
}

func coerce(v any, ft FieldType) (any, error) {
	switch ft {
	case FieldFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case FieldInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == float64(int64(n)) {
				return int64(n), nil
			}
		}
	case FieldString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case FieldBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("value %v (%T) does not fit %s", v, v, ft)
}

// TemplateBuilder assembles a Template fluently:
//
//	t := rule.NewTemplate("PurchasingData").
//	    FloatField("avg_daily_demand").
//	    StringField("trend").
//	    IntField("lead_time").
//	    Build()
type TemplateBuilder struct {
	name   string
	fields map[string]FieldType
}

// NewTemplate starts a builder for a template of the given name.
func NewTemplate(name string) *TemplateBuilder {
	return &TemplateBuilder{name: name, fields: make(map[string]FieldType)}
}

// FloatField declares a float-typed field.
func (b *TemplateBuilder) FloatField(name string) *TemplateBuilder {
	b.fields[name] = FieldFloat
	return b
}

// IntField declares an integer-typed field.
func (b *TemplateBuilder) IntField(name string) *TemplateBuilder {
	b.fields[name] = FieldInt
	return b
}

// StringField declares a string-typed field.
func (b *TemplateBuilder) StringField(name string) *TemplateBuilder {
	b.fields[name] = FieldString
	return b
}

// BoolField declares a boolean-typed field.
func (b *TemplateBuilder) BoolField(name string) *TemplateBuilder {
	b.fields[name] = FieldBool
	return b
}

// Build finalizes the template.
func (b *TemplateBuilder) Build() *Template {
	fields := make(map[string]FieldType, len(b.fields))
	for k, v := range b.fields {
		fields[k] = v
	}
	return &Template{Name: b.name, fields: fields}
}

// Registry holds templates by name.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// Register stores the template, replacing any previous one of the same
// name.
func (r *Registry) Register(t *Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Name] = t
}

// Get returns the template for name.
func (r *Registry) Get(name string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	return t, ok
}
