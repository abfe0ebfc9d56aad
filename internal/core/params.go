package core

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// placeholderRegex matches %(name)s style named placeholders. The identifier
// is one or more non-) characters, matching what the driver-side binding
// accepts.
var placeholderRegex = regexp.MustCompile(`%\(([^)]+)\)s`)

// ExtractNamedParameters returns the placeholder names found in sqlText in
// order of first occurrence, de-duplicated. After stripping recognized
// placeholders and collapsing %% escapes, any remaining % is a
// ParameterSyntaxError: it would otherwise reach the driver as a malformed
// binding directive.
func ExtractNamedParameters(sqlText string) ([]string, error) {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholderRegex.FindAllStringSubmatch(sqlText, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}

	stripped := placeholderRegex.ReplaceAllString(sqlText, "")
	stripped = strings.ReplaceAll(stripped, "%%", "")
	if strings.Contains(stripped, "%") {
		return nil, &ParameterSyntaxError{SQL: sqlText}
	}
	return names, nil
}

// Parameter is a named value required by one or more queries on a page.
type Parameter struct {
	Name       string
	Default    string
	HasDefault bool
}

// ParameterSet accumulates parameters across every SQL text on a page into
// one ordered, de-duplicated-by-name registry.
type ParameterSet struct {
	names  []string
	byName map[string]*Parameter
}

func NewParameterSet() *ParameterSet {
	return &ParameterSet{byName: map[string]*Parameter{}}
}

// Extract adds the placeholders of sqlText to the set. defaults carries any
// defaults declared alongside this query; re-declaring a known name with a
// different default is a ParameterConflictError.
func (s *ParameterSet) Extract(sqlText string, defaults map[string]string) error {
	names, err := ExtractNamedParameters(sqlText)
	if err != nil {
		return err
	}
	for _, name := range names {
		p, ok := s.byName[name]
		if !ok {
			p = &Parameter{Name: name}
			s.byName[name] = p
			s.names = append(s.names, name)
		}
		declared, has := defaults[name]
		if !has {
			continue
		}
		if p.HasDefault && p.Default != declared {
			return &ParameterConflictError{Name: name, Existing: p.Default, Declared: declared}
		}
		p.Default = declared
		p.HasDefault = true
	}
	return nil
}

// Parameters returns the accumulated parameters in first-occurrence order.
func (s *ParameterSet) Parameters() []Parameter {
	out := make([]Parameter, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, *s.byName[name])
	}
	return out
}

// ValueSource is one ordered source of submitted parameter values, e.g. form
// data or the query string.
type ValueSource interface {
	Lookup(name string) (string, bool)
}

// FormSource adapts url.Values (form data or query string) to a ValueSource.
type FormSource url.Values

func (f FormSource) Lookup(name string) (string, bool) {
	vs, ok := f[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// BoundValues maps parameter names to resolved values. A nil entry is the
// explicit null sentinel: the executor passes it through as a genuine SQL
// NULL, never the literal string "None" or "".
type BoundValues map[string]*string

// Bind resolves each parameter by scanning sources in order and taking the
// first source that contains the key. An empty submitted value falls back to
// the declared default; no source and no default yields the null sentinel.
func (s *ParameterSet) Bind(sources ...ValueSource) BoundValues {
	bound := make(BoundValues, len(s.names))
	for _, name := range s.names {
		p := s.byName[name]
		var value *string
		for _, src := range sources {
			v, ok := src.Lookup(name)
			if !ok {
				continue
			}
			if v == "" && p.HasDefault {
				v = p.Default
			}
			value = &v
			break
		}
		if value == nil && p.HasDefault {
			d := p.Default
			value = &d
		}
		bound[name] = value
	}
	return bound
}

// RewritePositional converts %(name)s placeholders to $N driver placeholders
// and returns the argument list in matching order. Repeated names share one
// $N. %% escapes collapse to a literal % in the rewritten text. Values are
// always carried through the driver's binding mechanism, never interpolated.
func RewritePositional(sqlText string, values BoundValues) (string, []interface{}) {
	position := map[string]int{}
	var args []interface{}

	rewritten := placeholderRegex.ReplaceAllStringFunc(sqlText, func(match string) string {
		name := match[2 : len(match)-2]
		n, ok := position[name]
		if !ok {
			n = len(args) + 1
			position[name] = n
			if v := values[name]; v != nil {
				args = append(args, *v)
			} else {
				args = append(args, nil)
			}
		}
		return "$" + strconv.Itoa(n)
	})
	rewritten = strings.ReplaceAll(rewritten, "%%", "%")
	return rewritten, args
}
