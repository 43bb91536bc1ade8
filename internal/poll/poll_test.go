package poll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// sequence returns a check that replays outcomes and then keeps returning the last one.
func sequence(outcomes ...Outcome) (CheckFunc, *int) {
	calls := 0
	return func(ctx context.Context) Outcome {
		i := calls
		calls++
		if i >= len(outcomes) {
			return outcomes[len(outcomes)-1]
		}
		return outcomes[i]
	}, &calls
}

func TestWaitFor_ImmediateOK(t *testing.T) {
	check, calls := sequence(OK)

	start := time.Now()
	result := WaitFor(context.Background(), check, time.Hour, time.Second)

	assert.Equal(t, OK, result)
	assert.Equal(t, 1, *calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitFor_WaitThenOK(t *testing.T) {
	check, calls := sequence(Wait, OK)

	result := WaitFor(context.Background(), check, 10*time.Millisecond, time.Second)

	assert.Equal(t, OK, result)
	assert.Equal(t, 2, *calls)
}

func TestWaitFor_Timeout(t *testing.T) {
	check, calls := sequence(Wait)

	result := WaitFor(context.Background(), check, 10*time.Millisecond, 50*time.Millisecond)

	assert.Equal(t, TimedOut, result)
	assert.Greater(t, *calls, 1)
}

func TestWaitFor_TimeoutCallsCheckAtLeastOnce(t *testing.T) {
	check, calls := sequence(Wait)

	result := WaitFor(context.Background(), check, time.Millisecond, time.Nanosecond)

	assert.Equal(t, TimedOut, result)
	assert.GreaterOrEqual(t, *calls, 1)
}

func TestWaitFor_SlowCheckPastDeadline(t *testing.T) {
	calls := 0
	slow := func(ctx context.Context) Outcome {
		calls++
		time.Sleep(30 * time.Millisecond)
		return Wait
	}

	result := WaitFor(context.Background(), slow, time.Millisecond, 10*time.Millisecond)

	assert.Equal(t, TimedOut, result)
	assert.Equal(t, 1, calls)
}

func TestWaitFor_CancelledContextStillChecksOnce(t *testing.T) {
	check, calls := sequence(OK)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := WaitFor(ctx, check, time.Millisecond, time.Second)

	assert.Equal(t, OK, result)
	assert.Equal(t, 1, *calls)
}

func TestWaitFor_NoTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{0, -1, -time.Second} {
		check, calls := sequence(Wait, Wait, Wait, Wait, Wait, OK)

		result := WaitFor(context.Background(), check, time.Millisecond, timeout)

		assert.Equal(t, OK, result, "timeout=%s", timeout)
		assert.Equal(t, 6, *calls, "timeout=%s", timeout)
	}
}

func TestWaitFor_NoSleepAfterDeadline(t *testing.T) {
	slow := func(ctx context.Context) Outcome {
		time.Sleep(30 * time.Millisecond)
		return Wait
	}

	start := time.Now()
	result := WaitFor(context.Background(), slow, time.Hour, 10*time.Millisecond)

	assert.Equal(t, TimedOut, result)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitFor_UnknownOutcomeIsRetried(t *testing.T) {
	check, calls := sequence(TimedOut, OK)

	result := WaitFor(context.Background(), check, time.Millisecond, time.Second)

	assert.Equal(t, OK, result)
	assert.Equal(t, 2, *calls)
}

func TestWaitFor_ContextCancelled(t *testing.T) {
	check, _ := sequence(Wait)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result := WaitFor(ctx, check, time.Hour, 0)

	assert.Equal(t, TimedOut, result)
	assert.Less(t, time.Since(start), time.Second)
}
