package bridge

import (
	"sync"
	"time"

	"github.com/reptin/rcs/internal/engine"
)

// Default timeouts observed by the page side.
const (
	DefaultRequestTimeout   = 2000 * time.Millisecond
	DefaultHandshakeTimeout = 600 * time.Millisecond
)

// Result is the resolved outcome of a bridge request.
type Result struct {
	OK      bool
	Message string
	Engines []engine.Engine
}

// timeoutResult is what a request resolves to when no response arrives in
// time.
var timeoutResult = Result{OK: false, Message: "timeout"}

// pendingMap correlates outstanding request ids to their resolvers. An
// entry is cleared by whichever of {response, timeout} occurs first; late
// responses find no entry and are ignored.
type pendingMap struct {
	mu sync.Mutex
	m  map[string]chan Result
}

func newPendingMap() *pendingMap {
	return &pendingMap{m: make(map[string]chan Result)}
}

// add registers a resolver for requestID.
func (p *pendingMap) add(requestID string) <-chan Result {
	ch := make(chan Result, 1)
	p.mu.Lock()
	p.m[requestID] = ch
	p.mu.Unlock()
	return ch
}

// resolve delivers a response, reporting whether a resolver was still
// registered.
func (p *pendingMap) resolve(requestID string, res Result) bool {
	p.mu.Lock()
	ch, ok := p.m[requestID]
	if ok {
		delete(p.m, requestID)
	}
	p.mu.Unlock()
	if ok {
		ch <- res
	}
	return ok
}

// drop removes a resolver without delivering anything.
func (p *pendingMap) drop(requestID string) {
	p.mu.Lock()
	delete(p.m, requestID)
	p.mu.Unlock()
}

// size returns the number of outstanding requests.
func (p *pendingMap) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// await blocks until the resolver fires or the timeout elapses. On timeout
// the entry is removed eagerly so no resolver is left dangling.
func (p *pendingMap) await(requestID string, ch <-chan Result, timeout time.Duration) Result {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res
	case <-timer.C:
		p.drop(requestID)
		// The response may have slipped in between the timer firing and the
		// drop; prefer it when it did.
		select {
		case res := <-ch:
			return res
		default:
			return timeoutResult
		}
	}
}
