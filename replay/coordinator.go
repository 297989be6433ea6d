package replay

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"quotation-replay/calendar"
	"quotation-replay/config"
	"quotation-replay/helpers"
)

// Preheater runs the warmup tasks before emission begins. A returned
// error is fatal to the run; per-task failures are expected to be
// absorbed by the implementation.
type Preheater interface {
	RunAll(ctx context.Context, targetDate time.Time, symbols []string) error
}

// Coordinator owns the replay lifecycle and is the only writer of the
// replay state. At most one run is active at a time.
type Coordinator struct {
	source    QuotationSource
	pub       Publisher
	preheater Preheater
	cal       *calendar.Calendar
	defaults  config.ReplayConfig
	tap       Tap // optional

	indexCodes map[string]bool

	mu          sync.Mutex
	phase       Phase
	runID       string
	virtualTime time.Time
	lastWindow  Window
	emitted     int64
	dropped     int64
	runErr      error
	cancel      context.CancelFunc
	buf         *Buffer
	done        chan struct{}
}

// NewCoordinator wires the pipeline dependencies. tap may be nil.
func NewCoordinator(source QuotationSource, pub Publisher, preheater Preheater,
	cal *calendar.Calendar, defaults config.ReplayConfig, tap Tap) *Coordinator {

	indexCodes := make(map[string]bool, len(defaults.IndexCodes))
	for _, code := range defaults.IndexCodes {
		indexCodes[code] = true
	}

	return &Coordinator{
		source:     source,
		pub:        pub,
		preheater:  preheater,
		cal:        cal,
		defaults:   defaults,
		tap:        tap,
		indexCodes: indexCodes,
		phase:      PhaseStopped,
	}
}

// Start validates params and launches a run. Returns ErrAlreadyRunning
// while a previous run is active, or a *ValidationError on bad params.
func (c *Coordinator) Start(p Params) (string, error) {
	rp, err := validate(p, c.defaults, c.cal)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.phase != PhaseStopped && c.phase != PhaseFailed {
		c.mu.Unlock()
		return "", ErrAlreadyRunning
	}

	runID := uuid.NewString()
	c.runID = runID
	c.phase = PhasePreparing
	c.virtualTime = time.Time{}
	c.lastWindow = Window{}
	c.emitted = 0
	c.dropped = 0
	c.runErr = nil

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.buf = NewBuffer(rp.bufMax)
	c.done = make(chan struct{})

	buf, done := c.buf, c.done
	c.mu.Unlock()

	log.Printf("🚀 Replay %s starting: %s..%s speed=%dx preload=%v buffer=%d",
		runID, helpers.FormatDate(rp.startDate), helpers.FormatDate(rp.endDate),
		rp.speed, rp.preload, rp.bufMax)

	go c.run(ctx, rp, buf, done)
	return runID, nil
}

// Stop requests cooperative cancellation of the active run
func (c *Coordinator) Stop() Status {
	c.mu.Lock()
	switch c.phase {
	case PhasePreparing, PhasePreheating, PhaseRunning:
		c.phase = PhaseStopping
		cancel, buf := c.cancel, c.buf
		c.mu.Unlock()
		log.Println("🛑 Replay stop requested")
		if buf != nil {
			buf.Abort()
		}
		if cancel != nil {
			cancel()
		}
	default:
		c.mu.Unlock()
	}
	return c.Status()
}

// Status returns a snapshot of the replay state
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		RunID:        c.runID,
		Phase:        c.phase,
		EmittedCount: c.emitted,
		DroppedCount: c.dropped,
	}
	if !c.virtualTime.IsZero() {
		s.CurrentVirtualTime = helpers.FormatDateTime(c.virtualTime)
	}
	s.LastLoadedWindow = c.lastWindow.String()
	if c.runErr != nil {
		s.ErrorCause = c.runErr.Error()
	}
	return s
}

// run is the per-run goroutine: preheat, then loader and pacer until
// completion, cancellation or failure.
func (c *Coordinator) run(ctx context.Context, rp runParams, buf *Buffer, done chan struct{}) {
	defer close(done)

	c.setPhase(PhasePreheating)
	if err := c.preheater.RunAll(ctx, rp.startDate, rp.codes); err != nil && !ignorable(err) {
		c.finish(err)
		return
	}
	if ctx.Err() != nil {
		c.finish(nil)
		return
	}

	c.setPhase(PhaseRunning)
	if c.tap != nil {
		c.tap.Broadcast("replay_started", map[string]string{"runId": c.Status().RunID})
	}

	ld := &loader{source: c.source, buf: buf, cal: c.cal, params: rp, sink: c}
	pc := &pacer{
		buf:        buf,
		pub:        c.pub,
		sink:       c,
		tap:        c.tap,
		speed:      rp.speed,
		indexCodes: c.indexCodes,
		endClose:   calendar.SessionClose(rp.endDate),
	}

	cancelRun := func() {
		c.mu.Lock()
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	}

	loaderErr := make(chan error, 1)
	go func() {
		err := ld.run(ctx)
		if err != nil && !ignorable(err) {
			// Fatal source failure: record the cause and pull the
			// pacer down with us
			c.recordError(err)
			cancelRun()
		}
		loaderErr <- err
	}()

	perr := pc.run(ctx)
	if perr != nil && !ignorable(perr) {
		c.recordError(perr)
	}

	// Pacer exited; make sure the loader is not left blocked
	cancelRun()
	buf.Abort()
	<-loaderErr

	c.finish(nil)
}

// finish settles the terminal phase for the run
func (c *Coordinator) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil && c.runErr == nil {
		c.runErr = err
	}
	if c.runErr != nil {
		c.phase = PhaseFailed
		log.Printf("❌ Replay %s failed: %v", c.runID, c.runErr)
		return
	}
	c.phase = PhaseStopped
	log.Printf("✅ Replay %s stopped (%d emitted, %d dropped)", c.runID, c.emitted, c.dropped)
}

func (c *Coordinator) setPhase(p Phase) {
	c.mu.Lock()
	// A stop request may land between phases; never overwrite STOPPING
	if c.phase != PhaseStopping {
		c.phase = p
	}
	c.mu.Unlock()
}

func (c *Coordinator) recordError(err error) {
	c.mu.Lock()
	if c.runErr == nil {
		c.runErr = err
	}
	c.mu.Unlock()
}

// ignorable reports whether a worker error is just cooperative
// cancellation, which is not a failure.
func ignorable(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrAborted)
}

// stateSink implementation: workers report through these, the
// coordinator's lock serializes all mutation.

func (c *Coordinator) setVirtualTime(t time.Time) {
	c.mu.Lock()
	c.virtualTime = t
	c.mu.Unlock()
}

func (c *Coordinator) setLastWindow(w Window) {
	c.mu.Lock()
	c.lastWindow = w
	c.mu.Unlock()
}

func (c *Coordinator) addEmitted(n int64) {
	c.mu.Lock()
	c.emitted += n
	c.mu.Unlock()
}

func (c *Coordinator) addDropped(n int64) {
	c.mu.Lock()
	c.dropped += n
	c.mu.Unlock()
}
