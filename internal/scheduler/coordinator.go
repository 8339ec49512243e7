package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/vvka-141/pgfastload/internal/logging"
	"github.com/vvka-141/pgfastload/internal/schema"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// Action is the leaf step that populates one table from one file. It
// returns the number of rows written.
type Action interface {
	Apply(ctx context.Context, table schema.Table, path string) (int64, error)
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx context.Context, table schema.Table, path string) (int64, error)

func (f ActionFunc) Apply(ctx context.Context, table schema.Table, path string) (int64, error) {
	return f(ctx, table, path)
}

// Caller is the identity threaded through one recursive dependency walk.
// Its Action is bound to the caller's own connection.
type Caller struct {
	ID     CallerID
	Action Action
	// Logger, when set, is used instead of the coordinator's logger.
	Logger fastload.Logger
}

// Coordinator owns the per-table load state of a run.
type Coordinator struct {
	catalog  *schema.Catalog
	files    FileMap
	logger   fastload.Logger
	observer Observers
	tally    Tally
	waiting  bool

	mu        sync.Mutex
	cond      *sync.Cond
	states    map[schema.TableKey]*loadState
	waitingOn map[CallerID]schema.TableKey

	// onClaim runs after a caller takes ownership of a table and before its
	// dependency walk.
	onClaim func(CallerID, schema.TableKey)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for callers without their own.
func WithLogger(logger fastload.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observer = append(c.observer, o)
		}
	}
}

// WithoutWaiting makes a table owned by another caller count as in progress
// instead of blocking. Used by single-caller script mode.
func WithoutWaiting() Option {
	return func(c *Coordinator) { c.waiting = false }
}

// NewCoordinator creates a coordinator over the target catalog and the
// discovered files.
func NewCoordinator(catalog *schema.Catalog, files FileMap, opts ...Option) *Coordinator {
	c := &Coordinator{
		catalog:   catalog,
		files:     files,
		logger:    logging.NewNullLogger(),
		waiting:   true,
		states:    make(map[schema.TableKey]*loadState),
		waitingOn: make(map[CallerID]schema.TableKey),
	}
	c.cond = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureLoaded returns once key is loaded, or is being loaded further up the
// caller's own walk. Tables outside the target schema are ignored. An Action
// failure is logged and reported to observers; it is not returned. The only
// error is the context's, when it ends while the caller waits or walks.
func (c *Coordinator) EnsureLoaded(ctx context.Context, caller *Caller, key schema.TableKey) error {
	log := c.loggerFor(caller)

	table, ok := c.catalog.Lookup(key)
	if !ok {
		log.Verbose("%s is not a table in the target database, skipping", key)
		return nil
	}

	claimed, err := c.claim(ctx, caller, key, log)
	if err != nil || !claimed {
		return err
	}
	if c.onClaim != nil {
		c.onClaim(caller.ID, key)
	}

	for _, dep := range c.catalog.Graph().DependenciesOf(key) {
		if dep == key {
			continue
		}
		if err := c.EnsureLoaded(ctx, caller, dep); err != nil {
			c.settle(key, Event{Worker: caller.ID, Table: table, Outcome: OutcomeFailed, Err: err})
			return err
		}
	}

	c.settle(key, c.apply(ctx, caller, table, log))
	return nil
}

// claim moves key from Unloaded to Loading on behalf of caller. It reports
// false when there is nothing for the caller to do.
func (c *Coordinator) claim(ctx context.Context, caller *Caller, key schema.TableKey, log fastload.Logger) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stopWake func() bool
	defer func() {
		if stopWake != nil {
			stopWake()
		}
	}()

	for {
		st, ok := c.states[key]
		switch {
		case !ok:
			c.states[key] = &loadState{phase: Loading, owner: caller.ID}
			return true, nil
		case st.phase == Loaded:
			return false, nil
		case st.owner == caller.ID:
			return false, nil
		case !c.waiting:
			return false, nil
		}

		if holder, cycle := c.closesCycle(caller.ID, key); cycle {
			log.Error("circular dependency: %s is being loaded by %s, which is waiting on a table held here; continuing without it",
				key, holder)
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if stopWake == nil {
			stopWake = context.AfterFunc(ctx, func() {
				c.mu.Lock()
				defer c.mu.Unlock()
				c.cond.Broadcast()
			})
		}

		log.Verbose("waiting for %s, held by %s", key, st.owner)
		c.waitingOn[caller.ID] = key
		c.cond.Wait()
		delete(c.waitingOn, caller.ID)
	}
}

// closesCycle follows owner -> awaited table -> owner from key. It reports
// whether the chain leads back to caller, in which case waiting on key would
// never end. Must be called with c.mu held.
func (c *Coordinator) closesCycle(caller CallerID, key schema.TableKey) (CallerID, bool) {
	holder := c.states[key].owner
	seen := make(map[CallerID]bool)
	for t := key; ; {
		st, ok := c.states[t]
		if !ok || st.phase != Loading {
			return "", false
		}
		if st.owner == caller {
			return holder, true
		}
		if seen[st.owner] {
			return "", false
		}
		seen[st.owner] = true

		next, blocked := c.waitingOn[st.owner]
		if !blocked {
			return "", false
		}
		t = next
	}
}

func (c *Coordinator) apply(ctx context.Context, caller *Caller, table schema.Table, log fastload.Logger) Event {
	ev := Event{Worker: caller.ID, Table: table}

	path, ok := c.files[table.Key()]
	if !ok {
		log.Warn("%s: dependency data not included, treating as loaded", table)
		ev.Outcome = OutcomeNoData
		return ev
	}
	ev.Path = path

	log.Verbose("loading %s from %s", table, path)
	start := time.Now()
	rows, err := caller.Action.Apply(ctx, table, path)
	ev.Duration = time.Since(start)
	ev.Rows = rows
	if err != nil {
		log.Error("failed to load %s: %v", table, err)
		ev.Outcome = OutcomeFailed
		ev.Err = err
		return ev
	}
	log.Verbose("loaded %s: %d rows in %s", table, rows, ev.Duration.Round(time.Millisecond))
	return ev
}

// settle marks key Loaded, wakes every waiter and reports the event.
func (c *Coordinator) settle(key schema.TableKey, ev Event) {
	c.mu.Lock()
	c.states[key].phase = Loaded
	c.cond.Broadcast()
	c.mu.Unlock()

	c.tally.TableSettled(ev)
	c.observer.TableSettled(ev)
}

// Phase returns the current phase of key.
func (c *Coordinator) Phase(key schema.TableKey) LoadPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[key]; ok {
		return st.phase
	}
	return Unloaded
}

// Summary returns the outcome counts so far.
func (c *Coordinator) Summary() Summary {
	return c.tally.Summary()
}

func (c *Coordinator) loggerFor(caller *Caller) fastload.Logger {
	if caller.Logger != nil {
		return caller.Logger
	}
	return c.logger
}
