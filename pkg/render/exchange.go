package render

import (
	"sync"

	"github.com/taigrr/voxlab/pkg/volume"
)

// Exchange is the only state shared between the control loop and the
// render loop. One mutex guards both the parameter snapshot and the
// pending-volume slot, so the render loop always sees a complete snapshot.
type Exchange struct {
	mu      sync.Mutex
	params  RenderParams
	pending *volume.Field
	dropped int
}

// NewExchange returns an exchange holding DefaultRenderParams.
func NewExchange() *Exchange {
	return &Exchange{params: DefaultRenderParams()}
}

// Publish replaces the parameter snapshot wholesale.
func (x *Exchange) Publish(p RenderParams) {
	x.mu.Lock()
	x.params = p
	x.mu.Unlock()
}

// Snapshot returns a copy of the current parameters.
func (x *Exchange) Snapshot() RenderParams {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.params
}

// Offer puts f in the pending-volume slot. A volume still waiting there is
// overwritten and never applied; Offer reports whether that happened.
func (x *Exchange) Offer(f *volume.Field) (discarded bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	discarded = x.pending != nil
	if discarded {
		x.dropped++
	}
	x.pending = f
	return discarded
}

// Take empties the pending-volume slot and returns what it held, or nil.
func (x *Exchange) Take() *volume.Field {
	x.mu.Lock()
	defer x.mu.Unlock()
	f := x.pending
	x.pending = nil
	return f
}

// Frame returns the parameter snapshot and takes the pending volume under
// a single lock.
func (x *Exchange) Frame() (RenderParams, *volume.Field) {
	x.mu.Lock()
	defer x.mu.Unlock()
	f := x.pending
	x.pending = nil
	return x.params, f
}

// Dropped returns how many offered volumes were overwritten before being
// taken.
func (x *Exchange) Dropped() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.dropped
}
