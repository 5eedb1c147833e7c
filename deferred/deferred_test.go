package deferred

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHonour_RunsProducerOnce(t *testing.T) {
	calls := 0
	d := From(func() (int, error) {
		calls++
		return 7, nil
	})

	for i := 0; i < 3; i++ {
		v, err := d.Honour().Result()
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
	assert.Equal(t, 1, calls)
}

func TestHonour_MemoizesFailure(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	d := From(func() (int, error) {
		calls++
		return 0, boom
	})

	_, err1 := d.Honour().Result()
	_, err2 := d.Honour().Result()
	assert.ErrorIs(t, err1, boom)
	assert.ErrorIs(t, err2, boom)
	assert.Equal(t, 1, calls)
}

func TestHonour_DoesNotRunBeforeObserved(t *testing.T) {
	ran := false
	d := From(func() (struct{}, error) {
		ran = true
		return struct{}{}, nil
	})
	assert.False(t, ran)
	d.Honour()
	assert.True(t, ran)
}

func TestThen_SynchronousChainSettlesImmediately(t *testing.T) {
	var order []string
	d := From(func() (int, error) {
		order = append(order, "produce")
		return 2, nil
	})
	next := Then(d, func(v int) *Promise[string] {
		order = append(order, "then")
		return Resolved("x" + string(rune('0'+v)))
	}, nil)

	p := next.Honour()
	require.True(t, p.Settled())
	v, err := p.Result()
	require.NoError(t, err)
	assert.Equal(t, "x2", v)
	assert.Equal(t, []string{"produce", "then"}, order)
}

func TestThen_OnErrorRecovers(t *testing.T) {
	d := From(func() (int, error) { return 0, errors.New("bad") })
	recovered := Then(d, func(v int) *Promise[int] {
		t.Fatal("value continuation must not run")
		return nil
	}, func(err error) *Promise[int] {
		return Resolved(len(err.Error()))
	})

	v, err := recovered.Honour().Result()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestThen_NilOnErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	d := From(func() (int, error) { return 0, boom })
	next := Then(d, func(int) *Promise[int] { return Resolved(1) }, nil)

	_, err := next.Honour().Result()
	assert.ErrorIs(t, err, boom)
}

func TestThen_SuspendedStepDefersContinuation(t *testing.T) {
	release := make(chan struct{})
	p, settle := Pending[int]()
	go func() {
		<-release
		settle(5, nil)
	}()

	continued := make(chan struct{})
	next := Then(Of(p), func(v int) *Promise[int] {
		close(continued)
		return Resolved(v + 1)
	}, nil)

	out := next.Honour()
	assert.False(t, out.Settled())
	select {
	case <-continued:
		t.Fatal("continuation ran before the step settled")
	default:
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := out.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, v)
}

func TestThen_ContinuationReturningPendingPromise(t *testing.T) {
	inner, settle := Pending[string]()
	next := Then(Value(1), func(int) *Promise[string] { return inner }, nil)

	out := next.Honour()
	assert.False(t, out.Settled())
	settle("late", nil)

	v, err := out.Result()
	require.NoError(t, err)
	assert.Equal(t, "late", v)
}

func TestCatch_PassesSuccessThrough(t *testing.T) {
	d := Value(3).Catch(func(error) *Promise[int] { return Resolved(-1) })
	v, err := d.Honour().Result()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestCatch_NilIsIdentity(t *testing.T) {
	d := Value(3)
	assert.Same(t, d, d.Catch(nil))
}

func TestFinally_RunsOnceAndPassesOutcome(t *testing.T) {
	boom := errors.New("boom")
	runs := 0
	d := From(func() (int, error) { return 0, boom }).Finally(func() { runs++ })

	_, err := d.Honour().Result()
	_, _ = d.Honour().Result()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, runs)

	v, err := Value(4).Finally(func() { runs++ }).Honour().Result()
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	assert.Equal(t, 2, runs)
}

func TestHonour_RecoversPanics(t *testing.T) {
	d := New(func() *Promise[int] { panic("kaboom") })

	_, err := d.Honour().Result()
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.Equal(t, "kaboom", err.Error())
}

func TestPanicError_UnwrapsErrorValues(t *testing.T) {
	boom := errors.New("boom")
	d := New(func() *Promise[int] { panic(boom) })

	_, err := d.Honour().Result()
	assert.ErrorIs(t, err, boom)
}

func TestNew_NilPromiseIsZeroValue(t *testing.T) {
	v, err := New(func() *Promise[int] { return nil }).Honour().Result()
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestPending_SettlesOnlyOnce(t *testing.T) {
	p, settle := Pending[int]()
	settle(1, nil)
	settle(2, errors.New("ignored"))

	v, err := p.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestWait_HonoursContext(t *testing.T) {
	p, _ := Pending[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, p.Settled())
}
