// Package task defines the agent task kinds. A kind is data: prompt template,
// output schema, verification and cache policy, round budget, temperature
// and allowed tools. Kinds are loaded from the embedded kinds.yaml.
package task

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/applyo/prospector/internal/apperr"
	"gopkg.in/yaml.v3"
)

const (
	KindCompanies = "company-discovery"
	KindPeople    = "people-discovery"
	KindEmails    = "email-discovery"
	KindProfile   = "profile"
)

const (
	TypeString = "string"
	TypeArray  = "array"
	TypeObject = "object"
)

//go:embed kinds.yaml
var defaultKinds []byte

// Field describes one output field. Arrays carry an item type; arrays of
// objects carry the object's fields.
type Field struct {
	Name        string  `yaml:"name"`
	Type        string  `yaml:"type"`
	Items       string  `yaml:"items,omitempty"`
	Fields      []Field `yaml:"fields,omitempty"`
	Required    bool    `yaml:"required,omitempty"`
	MaxItems    int     `yaml:"max_items,omitempty"`
	Description string  `yaml:"description,omitempty"`
}

// Schema is the declared shape of a kind's JSON output.
type Schema struct {
	Fields []Field `yaml:"fields"`
}

// Field returns the named top-level field.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

type Input struct {
	Name        string `yaml:"name"`
	Required    bool   `yaml:"required,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// VerifyPolicy names the array of strings whose entries must each pass the verifier.
type VerifyPolicy struct {
	Field string `yaml:"field"`
	Noun  string `yaml:"noun"`
}

// CachePolicy names the input that keys the company cache.
type CachePolicy struct {
	Input string `yaml:"input"`
}

type Spec struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	System      string        `yaml:"system,omitempty"`
	Prompt      string        `yaml:"prompt"`
	Inputs      []Input       `yaml:"inputs"`
	Tools       []string      `yaml:"tools,omitempty"`
	MinSearches int           `yaml:"min_searches,omitempty"`
	MaxSearches int           `yaml:"max_searches,omitempty"`
	Rounds      int           `yaml:"rounds"`
	Temperature *float64      `yaml:"temperature,omitempty"`
	Output      Schema        `yaml:"output"`
	Verify      *VerifyPolicy `yaml:"verify,omitempty"`
	Cache       *CachePolicy  `yaml:"cache,omitempty"`
}

func (s *Spec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("kind name is required")
	}
	if strings.TrimSpace(s.Prompt) == "" {
		return fmt.Errorf("kind %s: prompt is required", s.Name)
	}
	if s.Rounds < 1 {
		return fmt.Errorf("kind %s: rounds must be greater than 0", s.Name)
	}
	if len(s.Output.Fields) == 0 {
		return fmt.Errorf("kind %s: output schema has no fields", s.Name)
	}
	if err := validateFields(s.Output.Fields); err != nil {
		return fmt.Errorf("kind %s: %w", s.Name, err)
	}
	if s.Verify != nil {
		f, ok := s.Output.Field(s.Verify.Field)
		if !ok || f.Type != TypeArray || f.Items != TypeString {
			return fmt.Errorf("kind %s: verify field %q must be an array of strings", s.Name, s.Verify.Field)
		}
	}
	if s.Cache != nil && !s.hasInput(s.Cache.Input) {
		return fmt.Errorf("kind %s: cache input %q is not declared", s.Name, s.Cache.Input)
	}
	return nil
}

func (s *Spec) hasInput(name string) bool {
	for _, in := range s.Inputs {
		if in.Name == name {
			return true
		}
	}
	return false
}

func validateFields(fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("field without name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case TypeString:
		case TypeArray:
			switch f.Items {
			case TypeString:
			case TypeObject:
				if len(f.Fields) == 0 {
					return fmt.Errorf("field %q: object items need fields", f.Name)
				}
				if err := validateFields(f.Fields); err != nil {
					return fmt.Errorf("field %q: %w", f.Name, err)
				}
			default:
				return fmt.Errorf("field %q: unsupported item type %q", f.Name, f.Items)
			}
		default:
			return fmt.Errorf("field %q: unsupported type %q", f.Name, f.Type)
		}
	}
	return nil
}

// Catalog holds the known kinds.
type Catalog struct {
	kinds map[string]*Spec
}

// LoadDefault parses the embedded kinds.yaml.
func LoadDefault() (*Catalog, error) {
	return Parse(defaultKinds)
}

// Parse builds a catalog from YAML of the form `kinds: [...]`.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Kinds []*Spec `yaml:"kinds"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse kinds: %w", err)
	}

	c := &Catalog{kinds: make(map[string]*Spec, len(doc.Kinds))}
	for _, spec := range doc.Kinds {
		if err := spec.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.kinds[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate kind %q", spec.Name)
		}
		c.kinds[spec.Name] = spec
	}
	return c, nil
}

func (c *Catalog) Get(name string) (*Spec, bool) {
	spec, ok := c.kinds[name]
	return spec, ok
}

// List returns the kinds sorted by name.
func (c *Catalog) List() []*Spec {
	specs := make([]*Spec, 0, len(c.kinds))
	for _, spec := range c.kinds {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Inputs are the caller's free-form string inputs. A missing key means
// "not provided"; a present empty string is the empty string.
type Inputs map[string]string

// Lookup returns the value and whether it was provided.
func (in Inputs) Lookup(name string) (string, bool) {
	v, ok := in[name]
	return v, ok
}

// Task is one run of the protocol. Immutable after New.
type Task struct {
	Spec   *Spec
	Inputs Inputs
}

// New validates inputs against the kind. Missing or blank required inputs
// are rejected before any generation happens.
func New(spec *Spec, inputs Inputs) (*Task, error) {
	copied := make(Inputs, len(inputs))
	for k, v := range inputs {
		copied[k] = v
	}

	for _, in := range spec.Inputs {
		if !in.Required {
			continue
		}
		if v, ok := copied[in.Name]; !ok || strings.TrimSpace(v) == "" {
			return nil, apperr.Newf(apperr.ErrInvalidInput, "%s is required", in.Name).
				WithContext("kind", spec.Name)
		}
	}
	return &Task{Spec: spec, Inputs: copied}, nil
}

func (t *Task) Kind() string {
	return t.Spec.Name
}
