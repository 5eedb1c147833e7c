package scenario

import (
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ducktest/tap"
)

// Report runs def and returns its TAP output as newline-terminated text.
func Report(ctx context.Context, def *Definition) (string, bool, error) {
	var lines []string
	ok, err := Run(ctx, def, tap.Collect(&lines))
	return strings.Join(lines, "\n") + "\n", ok, err
}

// RunWithGolden runs def and compares its report with
// testdata/golden/{def.Name}.golden. Regenerate with:
//
//	go test ./internal/scenario -update
//
// The report's own outcome is returned so tests can assert on it; a
// structural bail-out is part of the golden output, not an error here.
func RunWithGolden(t *testing.T, def *Definition) bool {
	t.Helper()

	out, ok, _ := Report(context.Background(), def)
	AssertGolden(t, def.Name, out)
	return ok
}

// AssertGolden compares report text against testdata/golden/{name}.golden.
func AssertGolden(t *testing.T, name, report string) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(report))
}
