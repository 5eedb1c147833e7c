package tap

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReport(t *testing.T, opts ...Option) (*Report, *[]string) {
	t.Helper()
	var lines []string
	return Begin(Collect(&lines), opts...), &lines
}

func TestBegin_WritesVersionLine(t *testing.T) {
	r, lines := newReport(t)
	require.NoError(t, r.End())
	assert.Equal(t, []string{"TAP version 13", "1..0"}, *lines)
}

func TestBegin_PlannedCountIsImmediate(t *testing.T) {
	r, lines := newReport(t, WithPlan(2))
	assert.Equal(t, []string{"TAP version 13", "1..2"}, *lines)

	require.NoError(t, r.End())
	assert.Equal(t, []string{"TAP version 13", "1..2"}, *lines, "planned count must not be repeated")
}

func TestSubsection_EmptyWritesOnlyResultLine(t *testing.T) {
	r, lines := newReport(t, WithPlan(1))
	sub, err := r.Begin("empty test")
	require.NoError(t, err)
	require.NoError(t, sub.End())
	require.NoError(t, r.End())

	assert.Equal(t, []string{
		"TAP version 13",
		"1..1",
		"ok - empty test",
	}, *lines)
}

func TestSubsection_HeaderAndDeferredCount(t *testing.T) {
	r, lines := newReport(t, WithPlan(1))
	tc, err := r.Begin("testcase")
	require.NoError(t, err)
	for _, name := range []string{"one", "two"} {
		sub, err := tc.Begin(name)
		require.NoError(t, err)
		require.NoError(t, sub.End())
	}
	require.NoError(t, tc.End())
	require.NoError(t, r.End())

	assert.Equal(t, []string{
		"TAP version 13",
		"1..1",
		"[testcase]",
		"    ok - one",
		"    ok - two",
		"    1..2",
		"ok - testcase",
	}, *lines)
}

func TestFail_WritesBlockAndPropagates(t *testing.T) {
	r, lines := newReport(t, WithPlan(1))
	tc, _ := r.Begin("testcase")
	a, _ := tc.Begin("A")
	require.NoError(t, a.Fail(errors.New("failure")))
	require.NoError(t, a.End())
	b, _ := tc.Begin("B")
	require.NoError(t, b.End())
	require.NoError(t, tc.End())
	require.NoError(t, r.End())

	assert.Equal(t, []string{
		"TAP version 13",
		"1..1",
		"[testcase]",
		"    [A]",
		"        not ok - failure",
		"          ---",
		"          ...",
		"        1..1",
		"    not ok - A",
		"    ok - B",
		"    1..2",
		"not ok - testcase",
	}, *lines)
	assert.False(t, tc.Success())
	assert.False(t, r.Success())
	assert.True(t, b.Success())
}

func TestFail_WithoutMessage(t *testing.T) {
	r, lines := newReport(t)
	require.NoError(t, r.Fail(nil))
	assert.Equal(t, []string{"TAP version 13", "not ok", "  ---", "  ..."}, *lines)
}

func TestFail_FlattensMultilineMessages(t *testing.T) {
	r, lines := newReport(t)
	require.NoError(t, r.Fail(errors.New("first\n\tsecond\n")))
	assert.Equal(t, "not ok - first second", (*lines)[1])
}

func TestDiagnostic_SplitsLines(t *testing.T) {
	r, lines := newReport(t)
	sub, _ := r.Begin("sub")
	require.NoError(t, sub.Diagnostic("hello\nworld"))
	assert.Equal(t, []string{
		"TAP version 13",
		"[sub]",
		"    # hello",
		"    # world",
	}, *lines)
}

func TestEndWith_SubsectionDirective(t *testing.T) {
	r, lines := newReport(t)
	sub, _ := r.Begin("skipped")
	require.NoError(t, sub.EndWith("SKIP enclosing case failed"))
	assert.Equal(t, "ok - skipped # SKIP enclosing case failed", (*lines)[1])
	assert.Len(t, *lines, 2, "a silent subsection writes no header or count")
}

func TestEndWith_RootDiagnostic(t *testing.T) {
	r, lines := newReport(t, WithPlan(0))
	require.NoError(t, r.EndWith("done"))
	assert.Equal(t, []string{"TAP version 13", "1..0", "# done"}, *lines)
}

func TestEnd_Twice(t *testing.T) {
	r, _ := newReport(t)
	require.NoError(t, r.End())
	err := r.End()
	assert.ErrorIs(t, err, ErrAlreadyEnded)
	var tapErr *Error
	require.ErrorAs(t, err, &tapErr)
	assert.Equal(t, "end", tapErr.Op)
}

func TestEnd_WithOpenChildren(t *testing.T) {
	for _, ordering := range []Ordering{Serial, Concurrent} {
		t.Run(ordering.String(), func(t *testing.T) {
			r, _ := newReport(t)
			sub, err := r.BeginOrdered("open", ordering)
			require.NoError(t, err)
			assert.ErrorIs(t, r.End(), ErrChildrenOpen)
			assert.False(t, r.Ended())

			require.NoError(t, sub.End())
			assert.NoError(t, r.End())
		})
	}
}

func TestConcurrentOrdering_PrefixesLines(t *testing.T) {
	r, lines := newReport(t)
	a, _ := r.BeginOrdered("a", Concurrent)
	b, _ := r.BeginOrdered("b", Concurrent)
	require.NoError(t, a.Diagnostic("from a"))
	require.NoError(t, b.Fail(errors.New("from b")))
	require.NoError(t, a.End())
	require.NoError(t, b.End())
	require.NoError(t, r.End())

	assert.Equal(t, []string{
		"TAP version 13",
		"  a|  # from a",
		"  b|  not ok - from b",
		"  b|    ---",
		"  b|    ...",
		"  a|  1..0",
		"ok - a",
		"  b|  1..1",
		"not ok - b",
		"1..2",
	}, *lines)
}

func TestSerialNestingIsCumulative(t *testing.T) {
	r, lines := newReport(t)
	a, _ := r.Begin("a")
	b, _ := a.Begin("b")
	c, _ := b.Begin("c")
	require.NoError(t, c.Diagnostic("deep"))

	assert.Equal(t, []string{
		"TAP version 13",
		"[a]",
		"    [b]",
		"        [c]",
		"            # deep",
	}, *lines)
}

func TestBailOut_TerminatesTree(t *testing.T) {
	r, lines := newReport(t, WithPlan(1))
	sub, _ := r.Begin("testcase")
	r.BailOut(errors.New("duplicate subcase name encountered during run"))

	assert.Equal(t, []string{
		"TAP version 13",
		"1..1",
		"Bail out! duplicate subcase name encountered during run",
	}, *lines)
	assert.True(t, sub.BailedOut())
	assert.ErrorIs(t, sub.End(), ErrBailedOut)
	assert.ErrorIs(t, sub.Fail(errors.New("x")), ErrBailedOut)
	assert.ErrorIs(t, sub.Diagnostic("x"), ErrBailedOut)
	assert.ErrorIs(t, r.End(), ErrBailedOut)
	_, err := r.Begin("later")
	assert.ErrorIs(t, err, ErrBailedOut)

	r.BailOut(nil)
	assert.Len(t, *lines, 3, "only the first bail-out is written")
}

func TestBailOut_WithoutCause(t *testing.T) {
	r, lines := newReport(t)
	r.BailOut(nil)
	assert.Equal(t, "Bail out!", (*lines)[1])
}

func TestSuccess_NeverRecovers(t *testing.T) {
	r, _ := newReport(t)
	bad, _ := r.Begin("bad")
	require.NoError(t, bad.Fail(errors.New("x")))
	require.NoError(t, bad.End())
	good, _ := r.Begin("good")
	require.NoError(t, good.End())
	assert.False(t, r.Success())
}

func TestWriterSink(t *testing.T) {
	buf := &bytes.Buffer{}
	r := Begin(WriterSink(buf), WithPlan(0))
	require.NoError(t, r.End())
	assert.Equal(t, "TAP version 13\n1..0\n", buf.String())
}

func TestLines_SplitsChunks(t *testing.T) {
	var got []string
	sink := Lines(func(line string) { got = append(got, line) })
	sink("a\r\nb\nc")
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
