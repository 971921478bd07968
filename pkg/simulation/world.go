package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	golog "github.com/tochemey/goakt/v3/log"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// FlockActor drives a Flock from the actor system: every tick message makes
// it step the flock once and publish a snapshot.
type FlockActor struct {
	flock *Flock
	// Communication with the presentation layer
	snapshotCh chan<- Snapshot
	// --- Benchmark Stats ---
	steps       int
	dropped     int
	lastLogTime time.Time
}

var _ actor.Actor = (*FlockActor)(nil)

// NewFlockActor creates the actor. snapshotCh may be nil when nobody watches.
func NewFlockActor(flock *Flock, snapshotCh chan<- Snapshot) *FlockActor {
	return &FlockActor{
		flock:       flock,
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}
}

func (w *FlockActor) PreStart(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("flock actor starting with %d entities", w.flock.NumEntities())
	return nil
}

func (w *FlockActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		ctx.Logger().Info("flock actor started")

	// The Main Simulation Step (driven by the ticker or the game loop)
	case *timestamppb.Timestamp:
		if err := w.flock.Step(); err != nil {
			ctx.Err(fmt.Errorf("step requested at %s: %w", msg.AsTime().Format(time.RFC3339Nano), err))
			return
		}
		w.steps++
		w.logBenchmarks(ctx)
		w.pushSnapshot()

	default:
		ctx.Unhandled()
	}
}

func (w *FlockActor) logBenchmarks(ctx *actor.ReceiveContext) {
	if time.Since(w.lastLogTime) >= time.Second {
		ctx.Logger().Infof("STEP RATE: %d/sec (dropped snapshots: %d) | Entities: %d",
			w.steps, w.dropped, w.flock.NumEntities())
		w.steps = 0
		w.dropped = 0
		w.lastLogTime = time.Now()
	}
}

// pushSnapshot never blocks: a slow consumer simply misses intermediate frames.
func (w *FlockActor) pushSnapshot() {
	if w.snapshotCh == nil {
		return
	}
	select {
	case w.snapshotCh <- w.flock.Snapshot():
	default:
		// UI busy, skip frame
		w.dropped++
	}
}

func (w *FlockActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Info("flock actor is shutdown...")
	return nil
}

// DriverOptions configures a Driver.
type DriverOptions struct {
	// Interval between ticks. Zero disables the ticker: the caller then
	// triggers every step with Driver.Tick.
	Interval time.Duration
	// Logger used by the actor system. Defaults to golog.DiscardLogger.
	Logger golog.Logger
	// Buffer is the capacity of the snapshot channel. Defaults to 1.
	Buffer int
}

// Driver runs a Flock inside a goakt actor system on a fixed schedule.
type Driver struct {
	flock     *Flock
	opts      DriverOptions
	snapshots chan Snapshot

	mu     sync.Mutex
	system actor.ActorSystem
	pid    *actor.PID
	cancel context.CancelFunc
	done   chan struct{}
}

// ErrNotStarted is returned when a Driver is used before Start or after Stop.
var ErrNotStarted = errors.New("driver not started")

// NewDriver prepares a driver for flock. Nothing runs before Start.
func NewDriver(flock *Flock, opts DriverOptions) *Driver {
	if opts.Logger == nil {
		opts.Logger = golog.DiscardLogger
	}
	if opts.Buffer < 1 {
		opts.Buffer = 1
	}
	return &Driver{
		flock:     flock,
		opts:      opts,
		snapshots: make(chan Snapshot, opts.Buffer),
	}
}

// Snapshots is the lossy feed of published snapshots.
func (d *Driver) Snapshots() <-chan Snapshot {
	return d.snapshots
}

// Start creates the actor system, spawns the flock actor and, when an
// interval is set, starts ticking. Cancelling ctx stops the ticker.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.system != nil {
		return errors.New("driver already started")
	}

	system, err := actor.NewActorSystem("FlockWorld", actor.WithLogger(d.opts.Logger))
	if err != nil {
		return fmt.Errorf("failed to create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("failed to start actor system: %w", err)
	}
	pid, err := system.Spawn(ctx, "flock", NewFlockActor(d.flock, d.snapshots))
	if err != nil {
		_ = system.Stop(ctx)
		return fmt.Errorf("failed to spawn flock actor: %w", err)
	}

	tickCtx, cancel := context.WithCancel(ctx)
	d.system, d.pid, d.cancel = system, pid, cancel
	d.done = make(chan struct{})
	if d.opts.Interval <= 0 {
		close(d.done)
		return nil
	}
	go d.run(tickCtx, pid, d.done)
	return nil
}

func (d *Driver) run(ctx context.Context, pid *actor.PID, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := actor.Tell(ctx, pid, timestamppb.New(now)); err != nil {
				if ctx.Err() != nil {
					return
				}
				d.opts.Logger.Warnf("tick not delivered: %v", err)
			}
		}
	}
}

// Tick asks the actor for one step right now, on top of any scheduled ones.
func (d *Driver) Tick(ctx context.Context) error {
	d.mu.Lock()
	pid := d.pid
	d.mu.Unlock()
	if pid == nil {
		return ErrNotStarted
	}
	return actor.Tell(ctx, pid, timestamppb.Now())
}

// Stop halts the ticker and shuts the actor system down.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.system == nil {
		return ErrNotStarted
	}
	d.cancel()
	<-d.done
	err := d.system.Stop(ctx)
	d.system, d.pid, d.cancel = nil, nil, nil
	return err
}
