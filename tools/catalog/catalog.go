package catalog

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Type is the wire type of an action parameter
type Type string

const (
	Number  Type = "number"
	String  Type = "string"
	Boolean Type = "boolean"
	Array   Type = "array"
	Object  Type = "object"
)

// Param describes one named action parameter
type Param struct {
	Name        string
	Type        Type
	Required    bool
	Description string
	// Items describes array elements when Type is Array
	Items *Param
	// Fields describes nested properties when Type is Object
	Fields []Param
}

// Definition is one action the model may request
type Definition struct {
	Name        string
	Description string
	Params      []Param // ordered as advertised

	once     sync.Once
	resolved *jsonschema.Resolved
	err      error
}

// Param returns the named parameter, if declared
func (d *Definition) Param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Required lists the required parameter names in declaration order
func (d *Definition) Required() []string {
	return requiredOf(d.Params)
}

// Schema renders the parameter list as a JSON object schema
func (d *Definition) Schema() *jsonschema.Schema {
	return objectSchema("", d.Params)
}

// Validate checks raw JSON arguments against the definition's schema.
// Empty or null arguments are treated as an empty object.
func (d *Definition) Validate(args json.RawMessage) error {
	d.once.Do(func() {
		d.resolved, d.err = d.Schema().Resolve(nil)
	})
	if d.err != nil {
		return fmt.Errorf("schema for %s: %w", d.Name, d.err)
	}

	var instance any = map[string]any{}
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &instance); err != nil {
			return fmt.Errorf("arguments are not valid JSON: %w", err)
		}
	}
	if err := d.resolved.Validate(instance); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", d.Name, err)
	}
	return nil
}

func objectSchema(description string, params []Param) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:        string(Object),
		Description: description,
		Properties:  make(map[string]*jsonschema.Schema, len(params)),
	}
	for _, p := range params {
		s.Properties[p.Name] = paramSchema(p)
	}
	if req := requiredOf(params); len(req) > 0 {
		s.Required = req
	}
	return s
}

func paramSchema(p Param) *jsonschema.Schema {
	switch p.Type {
	case Object:
		return objectSchema(p.Description, p.Fields)
	case Array:
		s := &jsonschema.Schema{Type: string(Array), Description: p.Description}
		if p.Items != nil {
			s.Items = paramSchema(*p.Items)
		}
		return s
	default:
		return &jsonschema.Schema{Type: string(p.Type), Description: p.Description}
	}
}

func requiredOf(params []Param) []string {
	var req []string
	for _, p := range params {
		if p.Required {
			req = append(req, p.Name)
		}
	}
	return req
}

// Catalog is the read-only ordered list of actions for one domain
type Catalog struct {
	Domain string
	defs   []*Definition
	index  map[string]*Definition
}

// New builds a catalog, rejecting duplicate names
func New(domain string, defs ...*Definition) (*Catalog, error) {
	c := &Catalog{Domain: domain, index: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("action without a name in %s catalog", domain)
		}
		if _, dup := c.index[d.Name]; dup {
			return nil, fmt.Errorf("duplicate action %q in %s catalog", d.Name, domain)
		}
		c.index[d.Name] = d
		c.defs = append(c.defs, d)
	}
	return c, nil
}

// All returns the definitions in catalog order
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Names returns the action names in catalog order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.defs))
	for i, d := range c.defs {
		names[i] = d.Name
	}
	return names
}

// Lookup finds an action by name
func (c *Catalog) Lookup(name string) (*Definition, bool) {
	d, ok := c.index[name]
	return d, ok
}

// Has reports whether the catalog knows the action
func (c *Catalog) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}
