package resilience

import "sync"

// SingleFlight collapses concurrent calls that share a key into one
// execution. The FPL client keys on the request path so a burst of identical
// fetches hits the API once; late joiners get the in-flight result.
type SingleFlight struct {
	mu       sync.Mutex
	inflight map[string]*flightCall
}

type flightCall struct {
	done   sync.WaitGroup
	result any
	err    error
}

// Do runs fn once per key at a time. The bool reports whether the result was
// shared from another caller's execution.
func (g *SingleFlight) Do(key string, fn func() (any, error)) (any, error, bool) {
	g.mu.Lock()
	if existing, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		existing.done.Wait()
		return existing.result, existing.err, true
	}

	if g.inflight == nil {
		g.inflight = make(map[string]*flightCall)
	}
	fc := &flightCall{}
	fc.done.Add(1)
	g.inflight[key] = fc
	g.mu.Unlock()

	fc.result, fc.err = fn()
	fc.done.Done()

	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()

	return fc.result, fc.err, false
}
