// Package scenario compiles declarative suite files into ducktest suites.
//
// A suite file lists plan entries. Each entry is a testcase or a fixture
// whose steps register subcases, write messages and record failures:
//
//	name: stack
//	plan:
//	  - testcase: push and pop
//	    steps:
//	      - message: setup
//	      - subcase: push
//	        steps:
//	          - fail: overflow
//	      - subcase: pop
//
// Files ending in .yaml or .yml are decoded strictly; .cue files are
// evaluated with CUE and decoded into the same structure.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Definition is a declarative suite.
type Definition struct {
	// Name identifies the suite in run history and golden files.
	Name string `yaml:"name" json:"name"`

	// Description explains what the suite exercises.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Ordering is "serial" (default) or "concurrent".
	Ordering string `yaml:"ordering,omitempty" json:"ordering,omitempty"`

	// Plan lists the top-level entries in report order.
	Plan []Entry `yaml:"plan" json:"plan"`
}

// Entry is a top-level testcase or fixture. Exactly one of Testcase and
// Fixture is set.
type Entry struct {
	Testcase string `yaml:"testcase,omitempty" json:"testcase,omitempty"`
	Fixture  string `yaml:"fixture,omitempty" json:"fixture,omitempty"`
	Steps    []Step `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// Step is one action of a body. Exactly one of its action fields is set;
// Steps is only meaningful for Subcase and Testcase.
type Step struct {
	// Subcase registers a nested subcase running Steps.
	Subcase string `yaml:"subcase,omitempty" json:"subcase,omitempty"`

	// Testcase registers a testcase running Steps. Only fixtures may do so.
	Testcase string `yaml:"testcase,omitempty" json:"testcase,omitempty"`

	// Message writes a diagnostic.
	Message string `yaml:"message,omitempty" json:"message,omitempty"`

	// Fail records a soft failure and continues.
	Fail string `yaml:"fail,omitempty" json:"fail,omitempty"`

	// Error aborts the body with a failure.
	Error string `yaml:"error,omitempty" json:"error,omitempty"`

	Steps []Step `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// Load reads a suite file, choosing the decoder by extension.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	var def *Definition
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		def, err = ParseYAML(data)
	case ".cue":
		def, err = ParseCUE(data, path)
	default:
		return nil, fmt.Errorf("unsupported suite file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// ParseYAML decodes and validates a YAML suite, rejecting unknown fields.
func ParseYAML(data []byte) (*Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := Validate(&def); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &def, nil
}

// ParseCUE evaluates and validates a CUE suite. filename is used in error
// positions only.
func ParseCUE(data []byte, filename string) (*Definition, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}
	if err := value.Validate(); err != nil {
		return nil, fmt.Errorf("validating CUE value: %w", err)
	}

	var def Definition
	if err := value.Decode(&def); err != nil {
		return nil, fmt.Errorf("decoding CUE value: %w", err)
	}
	if err := Validate(&def); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &def, nil
}

// ValidationError locates a problem in a suite definition.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Validate checks the shape of def. Usage rules such as unique subcase names
// or where a testcase may appear are enforced when the suite runs, where
// they bail out the report.
func Validate(def *Definition) error {
	var errs []error
	if def.Name == "" {
		errs = append(errs, &ValidationError{Field: "name", Message: "is required"})
	}
	switch def.Ordering {
	case "", "serial", "concurrent":
	default:
		errs = append(errs, &ValidationError{Field: "ordering", Message: fmt.Sprintf("unknown ordering %q", def.Ordering)})
	}

	for i, e := range def.Plan {
		field := fmt.Sprintf("plan[%d]", i)
		switch {
		case e.Testcase != "" && e.Fixture != "":
			errs = append(errs, &ValidationError{Field: field, Message: "testcase and fixture are mutually exclusive"})
		case e.Testcase != "":
			errs = append(errs, validateSteps(field, e.Steps)...)
		case e.Fixture != "":
			errs = append(errs, validateSteps(field, e.Steps)...)
		default:
			errs = append(errs, &ValidationError{Field: field, Message: "one of testcase or fixture is required"})
		}
	}
	return errors.Join(errs...)
}

func validateSteps(parent string, steps []Step) []error {
	var errs []error
	for i, st := range steps {
		field := fmt.Sprintf("%s.steps[%d]", parent, i)
		set := 0
		for _, v := range []string{st.Subcase, st.Testcase, st.Message, st.Fail, st.Error} {
			if v != "" {
				set++
			}
		}
		switch {
		case set != 1:
			errs = append(errs, &ValidationError{Field: field, Message: "exactly one of subcase, testcase, message, fail or error is required"})
		case st.Subcase != "" || st.Testcase != "":
			errs = append(errs, validateSteps(field, st.Steps)...)
		case len(st.Steps) > 0:
			errs = append(errs, &ValidationError{Field: field, Message: "steps are only allowed under subcase or testcase"})
		}
	}
	return errs
}
