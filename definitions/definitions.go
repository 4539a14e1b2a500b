// Package definitions provides the block definition table, which maps block
// type names to IDs and lists the capabilities of each type.
//
// The table is compiled from a declarative YAML source. The default table is
// embedded in the package and built once on first use; tables are never
// modified after they are built, and may be read concurrently.
package definitions

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed definitions.yaml
var defaultSource []byte

//go:embed definitions.schema.json
var schemaSource string

// ErrNotFound indicates that no block type has the requested name.
var ErrNotFound = errors.New("block definition not found")

// Definition describes a single block type.
type Definition struct {
	ID   uint8  `yaml:"id"`
	Name string `yaml:"name"`
	// Flags are free-form capability tags, such as "tool".
	Flags []string `yaml:"flags"`

	// Labels of the entries of the block's metadata lists.
	Toggles   []string `yaml:"toggles"`
	Values    []string `yaml:"values"`
	Fields    []string `yaml:"fields"`
	Dropdowns []string `yaml:"dropdowns"`
	Colors    []string `yaml:"colors"`
	Gradients []string `yaml:"gradients"`
	Vectors   []string `yaml:"vectors"`
}

type source struct {
	Blocks []Definition `yaml:"block"`
}

// FlagSet is a set of capability tags, one bit per tag.
type FlagSet uint64

// Has returns whether s contains every flag in f.
func (s FlagSet) Has(f FlagSet) bool {
	return s&f == f
}

// Len returns the number of flags in the set.
func (s FlagSet) Len() int {
	return bits.OnesCount64(uint64(s))
}

// Table is a compiled block definition table.
type Table struct {
	defs   [256]*Definition
	byName map[string]uint8
	flags  [256]FlagSet
	tags   map[string]FlagSet
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("definitions.schema.json", schemaSource)
})

// Parse compiles a table from a YAML source. The source is validated against
// the definition schema. IDs and names must be unique.
func Parse(data []byte) (*Table, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}
	// Pass the document through JSON so the validator sees JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}

	var src source
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}

	t := &Table{
		byName: make(map[string]uint8, len(src.Blocks)),
		tags:   map[string]FlagSet{},
	}

	var tags []string
	for _, def := range src.Blocks {
		for _, f := range def.Flags {
			if _, ok := t.tags[f]; !ok {
				t.tags[f] = 0
				tags = append(tags, f)
			}
		}
	}
	if len(tags) > 64 {
		return nil, fmt.Errorf("definitions: %d flag tags exceeds maximum of 64", len(tags))
	}
	sort.Strings(tags)
	for i, f := range tags {
		t.tags[f] = 1 << i
	}

	for i := range src.Blocks {
		def := &src.Blocks[i]
		if t.defs[def.ID] != nil {
			return nil, fmt.Errorf("definitions: duplicate id %d (%s, %s)", def.ID, t.defs[def.ID].Name, def.Name)
		}
		if _, ok := t.byName[def.Name]; ok {
			return nil, fmt.Errorf("definitions: duplicate name %q", def.Name)
		}
		t.defs[def.ID] = def
		t.byName[def.Name] = def.ID
		for _, f := range def.Flags {
			t.flags[def.ID] |= t.tags[f]
		}
	}
	return t, nil
}

// LookupID returns the ID of the block type with the given name. Returns an
// error wrapping ErrNotFound if there is no such type.
func (t *Table) LookupID(name string) (uint8, error) {
	id, ok := t.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return id, nil
}

// Flags returns the flags of the block type with the given ID. Returns an
// empty set for unknown IDs.
func (t *Table) Flags(id uint8) FlagSet {
	return t.flags[id]
}

// Flag returns the set containing only the given tag, or an empty set if no
// block type has the tag.
func (t *Table) Flag(tag string) FlagSet {
	return t.tags[tag]
}

// Definition returns the definition of the block type with the given ID.
func (t *Table) Definition(id uint8) (def Definition, ok bool) {
	if d := t.defs[id]; d != nil {
		return *d, true
	}
	return Definition{}, false
}

// Name returns the name of the block type with the given ID, or a
// placeholder for unknown IDs.
func (t *Table) Name(id uint8) string {
	if d := t.defs[id]; d != nil {
		return d.Name
	}
	return fmt.Sprintf("<unknown %d>", id)
}

// Len returns the number of block types in the table.
func (t *Table) Len() int {
	return len(t.byName)
}

// Tags returns the flag tags of s, in order.
func (t *Table) Tags(s FlagSet) []string {
	var tags []string
	for tag, f := range t.tags {
		if s.Has(f) {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// Join returns the tags of s joined by commas.
func (t *Table) Join(s FlagSet) string {
	return strings.Join(t.Tags(s), ",")
}

var defaultTable = sync.OnceValues(func() (*Table, error) {
	return Parse(defaultSource)
})

// Default returns the embedded definition table. Panics if the embedded source
// is invalid.
func Default() *Table {
	t, err := defaultTable()
	if err != nil {
		panic(err)
	}
	return t
}

// LookupID returns the ID of the named block type in the default table.
func LookupID(name string) (uint8, error) {
	return Default().LookupID(name)
}

// Flags returns the flags of a block type in the default table.
func Flags(id uint8) FlagSet {
	return Default().Flags(id)
}

// Flag returns a flag of the default table.
func Flag(tag string) FlagSet {
	return Default().Flag(tag)
}
