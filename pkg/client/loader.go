package client

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/taigrr/voxlab/pkg/api"
	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/volume"
)

// Special values for the resolution argument of FetchVolume.
const (
	ResolutionFull    = 0
	ResolutionPreview = -1
)

// ParseResolution accepts "full", "low" or a positive integer.
func ParseResolution(s string) (int, error) {
	switch s {
	case "", "full":
		return ResolutionFull, nil
	case "low", "preview":
		return ResolutionPreview, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("resolution %q: want full, low or a positive integer", s)
	}
	return n, nil
}

// Kind distinguishes the two request streams a Loader tracks.
type Kind int

const (
	KindList Kind = iota
	KindVolume
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindVolume:
		return "volume"
	}
	return "unknown"
}

// RequestID orders requests. IDs increase monotonically across kinds.
type RequestID uint64

// Result is the outcome of one request. Exactly one of Volumes (KindList),
// Field (KindVolume) or Err is meaningful.
type Result struct {
	ID       RequestID
	Kind     Kind
	VolumeID string
	Volumes  []api.VolumeInfo
	Field    *volume.Field
	Err      error
}

// DefaultResultBuffer is the capacity of the result channel.
const DefaultResultBuffer = 4

// Loader runs fetches in the background and hands results to a single
// consumer through Poll. Only the newest request of each kind is delivered;
// an older one is cancelled when superseded and its result dropped if it
// still arrives.
type Loader struct {
	client  *Client
	ctx     context.Context
	stop    context.CancelFunc
	results chan Result
	wg      sync.WaitGroup

	mu      sync.Mutex
	next    RequestID
	latest  map[Kind]RequestID
	cancels map[Kind]context.CancelFunc
	stale   int
}

// NewLoader returns a loader whose requests live no longer than ctx.
func NewLoader(ctx context.Context, c *Client) *Loader {
	ctx, stop := context.WithCancel(ctx)
	return &Loader{
		client:  c,
		ctx:     ctx,
		stop:    stop,
		results: make(chan Result, DefaultResultBuffer),
		latest:  make(map[Kind]RequestID),
		cancels: make(map[Kind]context.CancelFunc),
	}
}

// start registers a new request of kind k, cancelling the previous one.
func (l *Loader) start(k Kind) (RequestID, context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cancel := l.cancels[k]; cancel != nil {
		cancel()
	}
	l.next++
	id := l.next
	ctx, cancel := context.WithCancel(l.ctx)
	l.latest[k] = id
	l.cancels[k] = cancel
	return id, ctx
}

func (l *Loader) run(id RequestID, k Kind, ctx context.Context, fn func(context.Context) Result) {
	l.wg.Go(func() {
		r := fn(ctx)
		r.ID = id
		r.Kind = k
		select {
		case l.results <- r:
		case <-ctx.Done():
			logging.Debugf("%s request %d abandoned: %v", k, id, ctx.Err())
		}
	})
}

// FetchVolumes requests the volume list.
func (l *Loader) FetchVolumes() RequestID {
	id, ctx := l.start(KindList)
	l.run(id, KindList, ctx, func(ctx context.Context) Result {
		vols, err := l.client.Volumes(ctx)
		return Result{Volumes: vols, Err: err}
	})
	return id
}

// FetchVolume requests the samples of info at res, which is
// ResolutionFull, ResolutionPreview or a target longest axis.
func (l *Loader) FetchVolume(info api.VolumeInfo, res int) RequestID {
	id, ctx := l.start(KindVolume)
	l.run(id, KindVolume, ctx, func(ctx context.Context) Result {
		f, err := l.client.Fetch(ctx, info, res)
		return Result{VolumeID: info.ID, Field: f, Err: err}
	})
	return id
}

// Latest returns the id of the newest request of kind k, or 0.
func (l *Loader) Latest(k Kind) RequestID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest[k]
}

// Pending reports whether the newest request of kind k has not been
// delivered by Poll yet.
func (l *Loader) Pending(k Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancels[k] != nil
}

// Stale returns how many results were dropped for being superseded.
func (l *Loader) Stale() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stale
}

// accept reports whether r answers the newest request of its kind and, if
// so, retires that request.
func (l *Loader) accept(r Result) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r.ID != l.latest[r.Kind] || l.cancels[r.Kind] == nil {
		l.stale++
		logging.Debugf("dropping stale %s result %d (latest %d)", r.Kind, r.ID, l.latest[r.Kind])
		return false
	}
	l.cancels[r.Kind]()
	l.cancels[r.Kind] = nil
	return true
}

// Poll returns the current results that have arrived without blocking.
func (l *Loader) Poll() []Result {
	var out []Result
	for {
		select {
		case r := <-l.results:
			if l.accept(r) {
				out = append(out, r)
			}
		default:
			return out
		}
	}
}

// Wait blocks until a current result arrives or ctx ends.
func (l *Loader) Wait(ctx context.Context) (Result, error) {
	for {
		select {
		case r := <-l.results:
			if l.accept(r) {
				return r, nil
			}
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}

// Close cancels outstanding requests and waits for their goroutines.
func (l *Loader) Close() {
	l.stop()
	l.wg.Wait()
}
