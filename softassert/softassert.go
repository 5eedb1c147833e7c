// Package softassert binds assertion libraries to a soft-failure callback.
//
// [T] satisfies the TestingT interfaces of testify's assert and require
// packages. Failures reported through it reach the callback instead of
// stopping the test:
//
//	t := softassert.New(suite.SoftFail)
//	assert.Equal(t, want, got) // recorded, body continues
//	require.NoError(t, err)    // recorded, body aborts via FailNow
package softassert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ErrFailNow is the panic value raised by [T.FailNow]. Runners recover it and
// treat the body as aborted with its failure already recorded.
var ErrFailNow = errors.New("softassert: FailNow")

var (
	_ assert.TestingT  = (*T)(nil)
	_ require.TestingT = (*T)(nil)
)

// T forwards assertion failures to a callback.
type T struct {
	fail func(error)
}

// New returns a T reporting to fail.
func New(fail func(error)) *T {
	return &T{fail: fail}
}

// Errorf records a failure.
func (t *T) Errorf(format string, args ...any) {
	t.fail(&Failure{Output: fmt.Sprintf(format, args...)})
}

// FailNow aborts the calling body by panicking with ErrFailNow.
func (t *T) FailNow() {
	panic(ErrFailNow)
}

// Helper is a no-op; it exists so T can stand in for *testing.T.
func (t *T) Helper() {}

// Failure is a failure reported by an assertion library.
type Failure struct {
	Output string
}

// Error condenses testify's labelled output to the "Error" and "Messages"
// sections. Unlabelled output is returned trimmed.
func (f *Failure) Error() string {
	sections := labelled(f.Output)
	msg := strings.Join(sections["Error"], " ")
	if msg == "" {
		return strings.TrimSpace(f.Output)
	}
	if extra := strings.Join(sections["Messages"], " "); extra != "" {
		msg += ": " + extra
	}
	return msg
}

// labelled parses lines of the form "\tLabel:  \tcontent" and their
// "\t        \tcontinuation" lines.
func labelled(output string) map[string][]string {
	sections := map[string][]string{}
	current := ""
	for _, line := range strings.Split(output, "\n") {
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 || fields[0] != "" {
			continue
		}
		if label := strings.TrimSpace(fields[1]); label != "" {
			current = strings.TrimSuffix(label, ":")
		}
		if current == "" {
			continue
		}
		if content := strings.TrimSpace(fields[2]); content != "" {
			sections[current] = append(sections[current], content)
		}
	}
	return sections
}
