package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Ticker is the subset of *time.Ticker the Runner needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct{ *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type command struct {
	ev    Event
	query func(m *Machine)
	reply chan error
}

// Runner drives one Machine from a single goroutine. Commands and countdown
// ticks are applied in arrival order; nothing else touches the machine.
type Runner struct {
	m         *Machine
	newTicker TickerFunc
	log       zerolog.Logger

	cmds  chan command
	ticks chan Tick
	done  chan struct{}
	once  sync.Once

	// Loop-owned.
	ticker    Ticker
	stopFwd   chan struct{}
	armedKind TimerKind
	armedTok  Token
	finished  bool

	mu           sync.Mutex
	subs         map[chan Snapshot]struct{}
	onResults    func(*Result)
	lastActivity time.Time
}

// NewRunner starts the event loop for m. newTicker may be nil.
func NewRunner(m *Machine, newTicker TickerFunc, log zerolog.Logger) *Runner {
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	r := &Runner{
		m:            m,
		newTicker:    newTicker,
		log:          log.With().Str("component", "exam_runner").Logger(),
		cmds:         make(chan command),
		ticks:        make(chan Tick, 1),
		done:         make(chan struct{}),
		subs:         make(map[chan Snapshot]struct{}),
		lastActivity: time.Now(),
	}
	go r.loop()
	return r
}

// OnResults registers fn to run once when the machine reaches results. It runs
// on the loop goroutine and must not call back into the Runner.
func (r *Runner) OnResults(fn func(*Result)) {
	r.mu.Lock()
	r.onResults = fn
	r.mu.Unlock()
}

// Do applies ev and returns its error.
func (r *Runner) Do(ctx context.Context, ev Event) error {
	r.touch()
	return r.send(ctx, command{ev: ev, reply: make(chan error, 1)})
}

// View runs fn against the machine on the loop goroutine.
func (r *Runner) View(ctx context.Context, fn func(m *Machine)) error {
	return r.send(ctx, command{query: fn, reply: make(chan error, 1)})
}

// Snapshot returns the current learner view.
func (r *Runner) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.View(ctx, func(m *Machine) { snap = m.Snapshot() })
	return snap, err
}

func (r *Runner) send(ctx context.Context, cmd command) error {
	select {
	case <-r.done:
		return ErrSessionClosed
	default:
	}

	select {
	case r.cmds <- cmd:
	case <-r.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel receiving a snapshot after every applied event.
// Slow subscribers miss snapshots rather than block the loop. The returned
// func unsubscribes.
func (r *Runner) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			if _, ok := r.subs[ch]; ok {
				delete(r.subs, ch)
				close(ch)
			}
			r.mu.Unlock()
		})
	}
}

// LastActivity is the time of the last learner command.
func (r *Runner) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

func (r *Runner) touch() {
	r.mu.Lock()
	r.lastActivity = time.Now()
	r.mu.Unlock()
}

// Close stops the loop and any running countdown.
func (r *Runner) Close() {
	r.once.Do(func() {
		close(r.done)
	})
}

// Done is closed once the Runner is closed.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) loop() {
	defer func() {
		r.stopTicker()
		r.mu.Lock()
		for ch := range r.subs {
			close(ch)
		}
		r.subs = map[chan Snapshot]struct{}{}
		r.mu.Unlock()
	}()

	for {
		select {
		case <-r.done:
			return
		case cmd := <-r.cmds:
			if cmd.query != nil {
				cmd.query(r.m)
				cmd.reply <- nil
				continue
			}
			err := r.m.Dispatch(cmd.ev)
			cmd.reply <- err
			r.afterApply()
		case t := <-r.ticks:
			if err := r.m.Dispatch(t); err != nil {
				r.log.Debug().Err(err).Msg("Tick rejected")
			}
			r.afterApply()
		}
	}
}

// afterApply re-arms the ticker when the armed countdown changed, publishes a
// snapshot and fires the results hook on the first arrival at results.
func (r *Runner) afterApply() {
	kind, tok := r.m.Armed()
	if kind != r.armedKind || tok != r.armedTok {
		r.stopTicker()
		r.armedKind, r.armedTok = kind, tok
		if kind != TimerNone {
			r.startTicker(kind, tok)
		}
	}

	r.publish(r.m.Snapshot())

	if r.finished || r.m.State() != StateResults {
		return
	}
	r.finished = true
	res, err := r.m.Results()
	if err != nil {
		return
	}
	r.mu.Lock()
	fn := r.onResults
	r.mu.Unlock()
	if fn != nil {
		fn(res)
	}
}

func (r *Runner) startTicker(kind TimerKind, tok Token) {
	t := r.newTicker(time.Second)
	stop := make(chan struct{})
	r.ticker, r.stopFwd = t, stop

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-r.done:
				return
			case <-t.C():
				select {
				case r.ticks <- Tick{Timer: kind, Token: tok}:
				case <-stop:
					return
				case <-r.done:
					return
				}
			}
		}
	}()
}

func (r *Runner) stopTicker() {
	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	close(r.stopFwd)
	r.ticker, r.stopFwd = nil, nil
}

func (r *Runner) publish(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
