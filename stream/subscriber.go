package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"sbadm/common"
	"sbadm/entity"
	"sbadm/utils/timing"
)

// ErrStopped is returned when starting subscriber which was already stopped.
var ErrStopped = errors.New("subscriber stopped")

// DefaultHints are event types which carry no entity, only a suggestion
// that something changed.
var DefaultHints = []string{"hello", "heartbeat", "ping", "refresh"}

// Opener connects to the stream, api.Client satisfies it.
type Opener interface {
	OpenStream(ctx context.Context, location string) (io.ReadCloser, error)
}

type Options struct {
	URL             string
	ReconnectDelay  time.Duration
	RefreshDebounce time.Duration
	Clock           timing.Clock
	// Handler receives every entity record from the stream.
	Handler func(entity.Record)
	// Refresh is called (debounced) on hint events and, when there is no
	// Handler, instead of applying records.
	Refresh func()
	// OnState is called synchronously with internal lock held on every
	// state change, it must not call back into subscriber.
	OnState func(common.ConnState)
	Hints   []string
}

// Subscriber owns single live connection and at most one pending reconnect
// timer. It is started once and stopped once, restarting with different
// parameters requires new instance.
type Subscriber struct {
	opener    Opener
	opts      Options
	clock     timing.Clock
	refresher *timing.Debouncer
	log       *zap.Logger

	mu         sync.Mutex
	state      common.ConnState
	started    bool
	stopped    bool
	parent     context.Context
	epoch      uint64
	connCancel context.CancelFunc
	conn       io.ReadCloser
	reconnect  timing.Timer
	wg         sync.WaitGroup
}

func New(opener Opener, opts Options, log *zap.Logger) *Subscriber {
	if opts.Clock == nil {
		opts.Clock = timing.Real()
	}
	if opts.Hints == nil {
		opts.Hints = DefaultHints
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{
		opener:    opener,
		opts:      opts,
		clock:     opts.Clock,
		refresher: timing.NewDebouncer(opts.Clock, opts.RefreshDebounce),
		log:       log.Named("stream").With(zap.String("url", opts.URL)),
		state:     common.ConnStateDisconnected,
	}
}

// State returns current connection state.
func (s *Subscriber) State() common.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscriber) setState(st common.ConnState) {
	if s.state == st {
		return
	}
	s.log.Debug("Connection state", zap.Stringer("from", s.state), zap.Stringer("to", st))
	s.state = st
	if s.opts.OnState != nil {
		s.opts.OnState(st)
	}
}

// Start opens connection. Cancelling ctx has the same effect as Stop except
// it does not wait for connection goroutine.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return errors.New("subscriber already started")
	}
	s.started = true
	s.parent = ctx
	s.connectLocked()

	context.AfterFunc(ctx, func() { s.teardown() })
	return nil
}

// Stop cancels pending reconnect, closes active connection and waits for
// connection goroutine to exit. No callbacks are made after Stop returns.
func (s *Subscriber) Stop() {
	s.teardown()
	s.wg.Wait()
}

func (s *Subscriber) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	s.closeConnLocked()
	s.refresher.Cancel()
	s.setState(common.ConnStateDisconnected)
}

func (s *Subscriber) closeConnLocked() {
	if s.connCancel != nil {
		s.connCancel()
		s.connCancel = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *Subscriber) connectLocked() {
	s.epoch++
	epoch := s.epoch
	ctx, cancel := context.WithCancel(s.parent)
	s.connCancel = cancel
	s.setState(common.ConnStateConnecting)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, epoch)
	}()
}

func (s *Subscriber) run(ctx context.Context, epoch uint64) {
	body, err := s.opener.OpenStream(ctx, s.opts.URL)
	if err != nil {
		s.fail(epoch, fmt.Errorf("unable to connect: %w", err))
		return
	}

	s.mu.Lock()
	if s.stopped || epoch != s.epoch {
		s.mu.Unlock()
		body.Close()
		return
	}
	s.conn = body
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	s.setState(common.ConnStateConnected)
	s.mu.Unlock()

	dec := NewDecoder(body)
	for {
		ev, err := dec.Next()
		if err != nil {
			if err == io.EOF {
				err = errors.New("stream closed by server")
			}
			s.fail(epoch, err)
			return
		}
		if !s.current(epoch) {
			return
		}
		s.dispatch(ev)
	}
}

func (s *Subscriber) current(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped && epoch == s.epoch
}

// fail moves to error state and schedules reconnect unless one is already
// pending.
func (s *Subscriber) fail(epoch uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || epoch != s.epoch {
		return
	}
	s.log.Debug("Connection lost", zap.Error(err))
	s.setState(common.ConnStateError)
	s.closeConnLocked()

	if s.reconnect != nil {
		return
	}
	s.reconnect = s.clock.AfterFunc(s.opts.ReconnectDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped {
			return
		}
		s.reconnect = nil
		s.connectLocked()
	})
	s.setState(common.ConnStateReconnecting)
}

func (s *Subscriber) dispatch(ev *Event) {
	if slices.Contains(s.opts.Hints, ev.Type) {
		s.refresh()
		return
	}

	records, err := decodePayload(ev.Data)
	if err != nil {
		s.log.Warn("Dropping malformed live update", zap.String("event", ev.Type), zap.Error(err))
		return
	}
	if s.opts.Handler == nil || len(records) == 0 {
		s.refresh()
		return
	}
	for _, rec := range records {
		s.opts.Handler(rec)
	}
}

func (s *Subscriber) refresh() {
	if s.opts.Refresh == nil {
		return
	}
	s.refresher.Trigger(s.opts.Refresh)
}

// decodePayload accepts single record, array of records and {"data": {...}}
// or {"items": [...]} wrappers. Elements without id are dropped.
func decodePayload(data []byte) ([]entity.Record, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	var out []entity.Record
	var collect func(v any, depth int)
	collect = func(v any, depth int) {
		switch v := v.(type) {
		case []any:
			for _, e := range v {
				collect(e, depth)
			}
		case map[string]any:
			rec := entity.Record(v)
			if rec.ID() != "" {
				out = append(out, rec)
				return
			}
			if depth > 0 {
				return
			}
			for _, key := range []string{"data", "items"} {
				if inner, ok := v[key]; ok {
					collect(inner, depth+1)
				}
			}
		}
	}
	collect(v, 0)
	return out, nil
}
