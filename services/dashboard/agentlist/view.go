// Package agentlist keeps one live agent table per mounted view: it polls the
// platform on an interval, tracks loading state and notices, and carries out
// row actions.
package agentlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"agentdash/pkg/platform"
)

// DefaultInterval is the polling period used when Options.Interval is unset.
const DefaultInterval = 10 * time.Second

// Notice texts shown to the operator.
const (
	MsgLoadFailed   = "Failed to load agent list"
	MsgDeleted      = "Agent deleted"
	MsgDeleteFailed = "Failed to delete agent"
)

var (
	// ErrMounted is returned when Mount is called on a live view.
	ErrMounted = errors.New("agentlist: view already mounted")
	// ErrUnmounted is returned once a view has been unmounted, or before it is mounted.
	ErrUnmounted = errors.New("agentlist: view not mounted")
	// ErrUnknownAgent is returned for delete requests naming an id that is not in the current rows.
	ErrUnknownAgent = errors.New("agentlist: agent not in current rows")
)

// Service is the part of the platform client a view needs.
type Service interface {
	ListAgents(ctx context.Context) ([]platform.Agent, error)
	DeleteAgent(ctx context.Context, id uint) error
}

// Phase is the load state of a view.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhasePopulated
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhasePopulated:
		return "populated"
	case PhaseErrored:
		return "errored"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// NoticeLevel classifies a transient notification.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient operator notification. Seq increases with every
// notice raised by the view so consumers can show each one once.
type Notice struct {
	Seq     uint64
	Level   NoticeLevel
	Message string
}

// Snapshot is a copy of a view's state.
type Snapshot struct {
	Phase   Phase
	Loading bool
	Rows    []Row
	Notice  *Notice
	Version uint64
}

// Ticker delivers polling ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Options configures a View.
type Options struct {
	Interval  time.Duration
	Location  *time.Location
	NewTicker func(time.Duration) Ticker
	Logger    zerolog.Logger
}

type lifecycle int

const (
	lifecycleNew lifecycle = iota
	lifecycleMounted
	lifecycleClosed
)

// View is the controller behind one mounted agent table.
type View struct {
	svc       Service
	interval  time.Duration
	loc       *time.Location
	newTicker func(time.Duration) Ticker
	log       zerolog.Logger

	mu        sync.Mutex
	lifecycle lifecycle
	phase     Phase
	inflight  int
	issued    uint64
	applied   uint64
	rows      []Row
	known     map[uint]struct{}
	notice    *Notice
	noticeSeq uint64
	version   uint64
	ctx       context.Context
	cancel    context.CancelFunc
	changes   chan struct{}

	wg          sync.WaitGroup
	unmountOnce sync.Once
}

// New creates an unmounted view backed by svc.
func New(svc Service, opts Options) *View {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.NewTicker == nil {
		opts.NewTicker = newTimeTicker
	}
	return &View{
		svc:       svc,
		interval:  opts.Interval,
		loc:       opts.Location,
		newTicker: opts.NewTicker,
		log:       opts.Logger.With().Str("component", "agentlist").Logger(),
		rows:      []Row{},
		known:     map[uint]struct{}{},
		changes:   make(chan struct{}, 1),
	}
}

// Interval returns the polling period.
func (v *View) Interval() time.Duration {
	return v.interval
}

// Mount issues the first load immediately and starts polling until Unmount
// is called or ctx is cancelled.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	switch v.lifecycle {
	case lifecycleMounted:
		v.mu.Unlock()
		return ErrMounted
	case lifecycleClosed:
		v.mu.Unlock()
		return ErrUnmounted
	}

	v.ctx, v.cancel = context.WithCancel(ctx)
	v.lifecycle = lifecycleMounted
	ticker := v.newTicker(v.interval)

	v.wg.Add(1)
	v.startLoadLocked()
	v.mu.Unlock()

	viewsMounted.Inc()
	go v.poll(ticker)
	return nil
}

// Unmount stops polling, cancels in-flight loads and waits for them to
// return. Results arriving afterwards are discarded. Safe to call repeatedly.
func (v *View) Unmount() {
	v.unmountOnce.Do(func() {
		v.mu.Lock()
		wasMounted := v.lifecycle == lifecycleMounted
		v.lifecycle = lifecycleClosed
		cancel := v.cancel
		close(v.changes)
		v.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		v.wg.Wait()
		if wasMounted {
			viewsMounted.Dec()
		}
	})
}

// Reload issues a load now, independent of the polling schedule.
func (v *View) Reload() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.lifecycle != lifecycleMounted || v.ctx.Err() != nil {
		return
	}
	v.startLoadLocked()
}

// Delete removes the agent with the given row id. On success a load is
// issued immediately; on failure the rows are left untouched.
func (v *View) Delete(ctx context.Context, id uint) error {
	v.mu.Lock()
	if v.lifecycle != lifecycleMounted {
		v.mu.Unlock()
		return ErrUnmounted
	}
	_, ok := v.known[id]
	v.mu.Unlock()
	if !ok {
		return ErrUnknownAgent
	}

	err := v.svc.DeleteAgent(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		deletesTotal.WithLabelValues("failure").Inc()
		v.log.Warn().Err(err).Uint("id", id).Msg("delete agent")
		if v.lifecycle == lifecycleMounted {
			v.raiseLocked(NoticeError, MsgDeleteFailed)
			v.bumpLocked()
		}
		return fmt.Errorf("agentlist: delete agent %d: %w", id, err)
	}

	deletesTotal.WithLabelValues("success").Inc()
	if v.lifecycle != lifecycleMounted {
		return nil
	}
	v.raiseLocked(NoticeSuccess, MsgDeleted)
	v.bumpLocked()
	if v.ctx.Err() == nil {
		v.startLoadLocked()
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	rows := make([]Row, len(v.rows))
	copy(rows, v.rows)
	snap := Snapshot{
		Phase:   v.phase,
		Loading: v.inflight > 0,
		Rows:    rows,
		Version: v.version,
	}
	if v.notice != nil {
		n := *v.notice
		snap.Notice = &n
	}
	return snap
}

// Changes is signalled after every state change. Signals coalesce, so a
// consumer should read Snapshot after each receive. The channel is closed
// by Unmount.
func (v *View) Changes() <-chan struct{} {
	return v.changes
}

func (v *View) poll(ticker Ticker) {
	defer v.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-v.ctx.Done():
			return
		case <-ticker.C():
			v.Reload()
		}
	}
}

// startLoadLocked must be called with mu held while mounted.
func (v *View) startLoadLocked() {
	v.issued++
	seq := v.issued
	v.inflight++
	v.phase = PhaseLoading
	v.bumpLocked()

	ctx := v.ctx
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		agents, err := v.svc.ListAgents(ctx)
		v.finishLoad(ctx, seq, agents, err)
	}()
}

func (v *View) finishLoad(ctx context.Context, seq uint64, agents []platform.Agent, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.inflight--
	if v.lifecycle != lifecycleMounted || ctx.Err() != nil {
		return
	}

	// A result older than the one already applied must not overwrite it.
	if seq <= v.applied {
		loadsTotal.WithLabelValues("stale").Inc()
		v.bumpLocked()
		return
	}
	v.applied = seq

	if err != nil {
		loadsTotal.WithLabelValues("failure").Inc()
		v.log.Warn().Err(err).Uint64("seq", seq).Msg("load agents")
		v.phase = PhaseErrored
		v.raiseLocked(NoticeError, MsgLoadFailed)
		v.bumpLocked()
		return
	}

	loadsTotal.WithLabelValues("success").Inc()
	v.rows = buildRows(agents, v.loc)
	v.known = make(map[uint]struct{}, len(agents))
	for _, a := range agents {
		v.known[a.ID] = struct{}{}
	}
	v.phase = PhasePopulated
	v.bumpLocked()
}

func (v *View) raiseLocked(level NoticeLevel, msg string) {
	v.noticeSeq++
	v.notice = &Notice{Seq: v.noticeSeq, Level: level, Message: msg}
}

func (v *View) bumpLocked() {
	v.version++
	select {
	case v.changes <- struct{}{}:
	default:
	}
}

type timeTicker struct {
	t *time.Ticker
}

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }
