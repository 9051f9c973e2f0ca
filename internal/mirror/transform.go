package mirror

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultTransform is the name of the transform used when none is configured
const DefaultTransform = "upper"

// Transform maps one line of input to one line of output
type Transform func(line string) string

// TransformFactory builds a Transform.
// A Transform may keep state and must not be shared between goroutines, so each
// task builds its own.
type TransformFactory func() Transform

var transforms = map[string]TransformFactory{
	"upper": func() Transform {
		return cases.Upper(language.Und).String
	},
	"lower": func() Transform {
		return cases.Lower(language.Und).String
	},
	"title": func() Transform {
		return cases.Title(language.Und).String
	},
	"identity": func() Transform {
		return func(line string) string { return line }
	},
}

// LookupTransform returns the factory registered under name
func LookupTransform(name string) (TransformFactory, error) {
	if name == "" {
		name = DefaultTransform
	}
	f, ok := transforms[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown transform %q (available: %s)", name, strings.Join(TransformNames(), ", "))
	}
	return f, nil
}

// TransformNames returns the registered transform names in sorted order
func TransformNames() []string {
	names := make([]string, 0, len(transforms))
	for name := range transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
