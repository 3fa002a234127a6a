// Package metaval validates metadata dictionaries against parameter
// categories: path-rooted scopes carrying typed constraints on the
// metadata keys beneath them.
//
// Metadata keys are dotted names ("core.runs", "beam.energy"). A
// category with path "core" governs every key under "core."; the deepest
// covering category wins. Values may also live nested inside structured
// metadata, so lookups fall back to a JSONPath walk when the literal
// dotted key is absent.
package metaval

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/filecat/filecat"
)

// Parameter types a definition can require.
const (
	TypeAny     = "any"
	TypeInt     = "int"
	TypeFloat   = "float"
	TypeText    = "text"
	TypeBoolean = "boolean"
	TypeList    = "list"
	TypeDict    = "dict"
)

// ParamDefinition constrains one parameter: a required type plus an
// optional enumeration, numeric range, or regex pattern.
type ParamDefinition struct {
	Type    string   `json:"type"`
	Values  []any    `json:"values,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

// Check tests value against the definition. name is used only in the
// error text.
func (d *ParamDefinition) Check(name string, value any) error {
	if err := d.checkType(name, value); err != nil {
		return err
	}
	if len(d.Values) > 0 && !containsValue(d.Values, value) {
		return fmt.Errorf("%s: value %v not in the allowed set", name, value)
	}
	if d.Min != nil || d.Max != nil {
		n, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("%s: value %v is not numeric", name, value)
		}
		if d.Min != nil && n < *d.Min {
			return fmt.Errorf("%s: value %v below minimum %v", name, value, *d.Min)
		}
		if d.Max != nil && n > *d.Max {
			return fmt.Errorf("%s: value %v above maximum %v", name, value, *d.Max)
		}
	}
	if d.Pattern != "" {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s: pattern constraint on non-text value %v", name, value)
		}
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return fmt.Errorf("%s: bad pattern %q: %v", name, d.Pattern, err)
		}
		if !re.MatchString(s) {
			return fmt.Errorf("%s: value %q does not match %q", name, s, d.Pattern)
		}
	}
	return nil
}

func (d *ParamDefinition) checkType(name string, value any) error {
	typ := d.Type
	if typ == "" || typ == TypeAny {
		return nil
	}
	ok := false
	switch typ {
	case TypeInt:
		switch v := value.(type) {
		case int, int32, int64:
			ok = true
		case float64:
			ok = v == float64(int64(v))
		}
	case TypeFloat:
		switch value.(type) {
		case float32, float64, int, int32, int64:
			ok = true
		}
	case TypeText:
		_, ok = value.(string)
	case TypeBoolean:
		_, ok = value.(bool)
	case TypeList:
		_, ok = value.([]any)
	case TypeDict:
		_, ok = value.(map[string]any)
	default:
		return fmt.Errorf("%s: unknown parameter type %q", name, typ)
	}
	if !ok {
		return fmt.Errorf("%s: value %v is not of type %s", name, value, typ)
	}
	return nil
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func containsValue(set []any, value any) bool {
	for _, v := range set {
		if fmt.Sprintf("%v", v) == fmt.Sprintf("%v", value) {
			return true
		}
	}
	return false
}

// ParamCategory is a path-rooted scope of definitions. Restricted
// categories reject keys they carry no definition for; open categories
// only check the keys they know.
type ParamCategory struct {
	Path        string
	Owner       string
	Restricted  bool
	Definitions map[string]*ParamDefinition
}

// Covers reports whether the dotted name falls under the category's
// path.
func (c *ParamCategory) Covers(name string) bool {
	return name == c.Path || strings.HasPrefix(name, c.Path+".")
}

// Check tests one metadata entry against the category.
func (c *ParamCategory) Check(name string, value any) error {
	rel := strings.TrimPrefix(name, c.Path+".")
	def, ok := c.Definitions[rel]
	if !ok {
		if c.Restricted {
			return fmt.Errorf("%s: not defined in restricted category %q", name, c.Path)
		}
		return nil
	}
	return def.Check(name, value)
}

// Validator checks metadata dictionaries against a set of categories.
type Validator struct {
	categories []*ParamCategory
}

// NewValidator builds a validator; categories are consulted
// deepest-path-first so the most specific one governs each key.
func NewValidator(categories []*ParamCategory) *Validator {
	sorted := make([]*ParamCategory, len(categories))
	copy(sorted, categories)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i].Path) > len(sorted[j].Path)
	})
	return &Validator{categories: sorted}
}

// CategoryFor returns the deepest category covering the dotted name, or
// nil.
func (v *Validator) CategoryFor(name string) *ParamCategory {
	for _, c := range v.categories {
		if c.Covers(name) {
			return c
		}
	}
	return nil
}

// Lookup resolves a dotted name against metadata: the literal top-level
// key first, then a JSONPath walk into nested structure.
func Lookup(meta map[string]any, name string) (any, bool) {
	if v, ok := meta[name]; ok {
		return v, true
	}
	expr, err := jp.ParseString("$." + name)
	if err != nil {
		return nil, false
	}
	results := expr.Get(meta)
	if len(results) == 0 {
		return nil, false
	}
	return results[0], true
}

// ValidateMetadata checks every entry of meta against its governing
// category. It collects all failures and returns one
// MetaValidationError, or nil when everything passes. Keys no category
// covers pass.
func (v *Validator) ValidateMetadata(meta map[string]any) error {
	var failures []string
	names := make([]string, 0, len(meta))
	for name := range meta {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := v.CategoryFor(name)
		if c == nil {
			continue
		}
		value, _ := Lookup(meta, name)
		if err := c.Check(name, value); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &filecat.MetaValidationError{
		Message: "metadata validation failed",
		Errors:  failures,
	}
}
