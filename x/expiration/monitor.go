package expiration

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/tendermint/tendermint/libs/log"
)

// Expirer fails an open proposal whose deadline passed. It returns false
// if there was nothing to do.
type Expirer interface {
	Expire(ctx context.Context, id uint64) (bool, error)
}

// Lister returns proposals in a given status.
type Lister interface {
	ListByStatus(status multisig.ProposalStatus) ([]*multisig.Proposal, error)
}

var (
	_ Expirer = (*multisig.Controller)(nil)
	_ Lister  = (*multisig.Controller)(nil)
)

// DefaultRetry is the delay between two attempts to expire a proposal.
const DefaultRetry = 10 * time.Second

// grace is added to a deadline before expiring. A proposal is expired only
// once the current time is strictly after its deadline.
const grace = time.Second

// Monitor expires proposals when their deadline passes.
type Monitor struct {
	clock   clock.Clock
	expirer Expirer
	logger  log.Logger
	retry   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	watches map[uint64]*watch
	stopped bool
}

type watch struct {
	cancel context.CancelFunc
}

// NewMonitor returns a monitor using given clock. Use Stop to release it.
func NewMonitor(clk clock.Clock, expirer Expirer, logger log.Logger) *Monitor {
	if logger == nil {
		logger = cosign.DefaultLogger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		clock:   clk,
		expirer: expirer,
		logger:  logger.With("module", "expiration"),
		retry:   DefaultRetry,
		ctx:     ctx,
		cancel:  cancel,
		watches: make(map[uint64]*watch),
	}
}

// WithRetry changes the delay between attempts.
func (m *Monitor) WithRetry(d time.Duration) *Monitor {
	if d > 0 {
		m.retry = d
	}
	return m
}

// Watch expires the proposal once deadline passed. Watching an id that is
// already watched does nothing and returns false.
func (m *Monitor) Watch(id uint64, deadline cosign.UnixTime) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return false, errors.Wrap(errors.ErrState, "monitor stopped")
	}
	if _, ok := m.watches[id]; ok {
		return false, nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	w := &watch{cancel: cancel}
	m.watches[id] = w

	// The first timer is created before returning so that a clock moved
	// right after Watch always triggers it.
	var timer *clock.Timer
	if wait := deadline.Time().Add(grace).Sub(m.clock.Now()); wait > 0 {
		timer = m.clock.Timer(wait)
	}

	m.wg.Add(1)
	go m.run(ctx, id, w, timer)
	return true, nil
}

// Cancel stops watching a proposal. It returns false if the id was not
// watched.
func (m *Monitor) Cancel(id uint64) bool {
	m.mu.Lock()
	w, ok := m.watches[id]
	if ok {
		delete(m.watches, id)
	}
	m.mu.Unlock()

	if ok {
		w.cancel()
	}
	return ok
}

// Watched returns the number of watched proposals.
func (m *Monitor) Watched() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watches)
}

// Stop cancels all watches and waits until their goroutines return. The
// monitor cannot be used afterwards.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context, id uint64, w *watch, timer *clock.Timer) {
	defer m.wg.Done()
	defer m.forget(id, w)

	if timer != nil && !m.wait(ctx, timer) {
		return
	}
	for {
		done, err := m.expire(ctx, id)
		if done {
			return
		}
		m.logger.Error("cannot expire proposal", "id", id, "err", err, "retry", m.retry)
		if !m.wait(ctx, m.clock.Timer(m.retry)) {
			return
		}
	}
}

// wait blocks until the timer fires or ctx is cancelled. The timer is
// stopped in both cases.
func (m *Monitor) wait(ctx context.Context, timer *clock.Timer) bool {
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// expire returns true if the proposal no longer needs to be watched.
func (m *Monitor) expire(ctx context.Context, id uint64) (bool, error) {
	if ctx.Err() != nil {
		return true, nil
	}
	expired, err := m.expirer.Expire(ctx, id)
	switch {
	case err == nil:
		if expired {
			m.logger.Info("proposal expired", "id", id)
		}
		return true, nil
	case errors.ErrNotFound.Is(err):
		m.logger.Error("watched proposal does not exist", "id", id)
		return true, nil
	case ctx.Err() != nil:
		return true, nil
	default:
		return false, err
	}
}

func (m *Monitor) forget(id uint64, w *watch) {
	m.mu.Lock()
	if m.watches[id] == w {
		delete(m.watches, id)
	}
	m.mu.Unlock()
	w.cancel()
}

// Sweep expires every open proposal whose deadline already passed and
// watches the remaining open proposals. It returns the number of expired
// proposals.
func (m *Monitor) Sweep(ctx context.Context, lister Lister) (int, error) {
	open, err := lister.ListByStatus(multisig.StatusOpen)
	if err != nil {
		return 0, errors.Wrap(err, "list open proposals")
	}

	var (
		expired int
		errs    error
	)
	now := cosign.AsUnixTime(m.clock.Now())
	for _, p := range open {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if !p.Deadline.Before(now) {
			if _, err := m.Watch(p.ID, p.Deadline); err != nil {
				return expired, err
			}
			continue
		}
		ok, err := m.expirer.Expire(ctx, p.ID)
		if err != nil {
			errs = errors.Append(errs, errors.Wrapf(err, "proposal %d", p.ID))
			continue
		}
		if ok {
			expired++
			m.Cancel(p.ID)
		}
	}
	if expired > 0 {
		m.logger.Info("expired proposals", "count", expired)
	}
	return expired, errs
}
