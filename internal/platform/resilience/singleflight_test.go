package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlightDeduplicates(t *testing.T) {
	t.Parallel()

	var flight SingleFlight
	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, _ = flight.Do("key", func() (any, error) {
			calls.Add(1)
			close(started)
			<-release
			return "shared", nil
		})
	}()

	// Followers join only once the leader is inside the call.
	<-started
	var ready sync.WaitGroup
	results := make([]any, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		ready.Add(1)
		go func(i int) {
			defer wg.Done()
			ready.Done()
			value, err, shared := flight.Do("key", func() (any, error) {
				calls.Add(1)
				return "follower", nil
			})
			if err != nil {
				t.Errorf("call %d failed: %v", i, err)
			}
			if !shared {
				t.Errorf("call %d expected to share the in-flight result", i)
			}
			results[i] = value
		}(i)
	}

	ready.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single execution, got %d", got)
	}
	for i, value := range results {
		if value != "shared" {
			t.Fatalf("call %d got %v", i, value)
		}
	}
}

func TestSingleFlightSequentialCallsRerun(t *testing.T) {
	t.Parallel()

	var flight SingleFlight
	calls := 0
	fn := func() (any, error) {
		calls++
		return calls, nil
	}

	first, _, shared := flight.Do("key", fn)
	if shared {
		t.Fatal("first call should not be shared")
	}
	second, _, _ := flight.Do("key", fn)

	if first == second {
		t.Fatal("expected sequential calls to run independently")
	}
	if calls != 2 {
		t.Fatalf("expected 2 executions, got %d", calls)
	}
}
