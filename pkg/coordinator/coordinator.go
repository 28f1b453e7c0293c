package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"serverlist/pkg/address"
	"serverlist/pkg/log"
	"serverlist/pkg/models"
	"serverlist/pkg/probe"
	"serverlist/pkg/store"
)

const (
	// DefaultServerName is used when a server is added without a name.
	DefaultServerName = "Minecraft Server"

	defaultProbeRate  = 8
	defaultProbeBurst = 8
)

// Prober queries a server's status.
type Prober interface {
	Probe(ctx context.Context, address string, timeout time.Duration) (*probe.Result, error)
}

// ProbeObserver is told about every probe outcome that was applied to an
// entry.
type ProbeObserver interface {
	ProbeFinished(entry models.ServerEntry)
}

// Options configures a Coordinator.
type Options struct {
	// Path is the data file the list is loaded from and saved to.
	Path   string
	Store  store.Store
	Prober Prober
	// ProbeTimeout is handed to every probe. Zero means probe.DefaultTimeout.
	ProbeTimeout time.Duration
	// ProbeRate limits probe starts per second. Negative disables the limit.
	ProbeRate  float64
	ProbeBurst int
	Observer   ProbeObserver
}

// Coordinator owns the in-memory server list. It serializes every store
// access through a single worker and runs status probes alongside it.
type Coordinator struct {
	path     string
	store    store.Store
	prober   Prober
	observer ProbeObserver
	timeout  time.Duration
	limiter  *rate.Limiter
	now      func() time.Time

	mu         sync.RWMutex
	collection *models.Collection
	state      State
	filter     string
	closed     bool
	probes     map[string]*probeJob
	generation uint64

	subMu   sync.Mutex
	subs    map[int]chan View
	nextSub int

	queue      *jobQueue
	workerDone chan struct{}
	probeWG    sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
}

// New creates a coordinator and starts its store worker. The list starts
// empty in StateLoading until LoadAll is called.
func New(opts Options) *Coordinator {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = probe.DefaultTimeout
	}
	if opts.ProbeRate == 0 {
		opts.ProbeRate = defaultProbeRate
	}
	if opts.ProbeBurst <= 0 {
		opts.ProbeBurst = defaultProbeBurst
	}

	limit := rate.Limit(opts.ProbeRate)
	if opts.ProbeRate < 0 {
		limit = rate.Inf
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		path:       opts.Path,
		store:      opts.Store,
		prober:     opts.Prober,
		observer:   opts.Observer,
		timeout:    opts.ProbeTimeout,
		limiter:    rate.NewLimiter(limit, opts.ProbeBurst),
		now:        time.Now,
		collection: models.NewCollection(),
		state:      StateLoading,
		probes:     make(map[string]*probeJob),
		subs:       make(map[int]chan View),
		queue:      newJobQueue(),
		workerDone: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}

	go c.worker()

	return c
}

func (c *Coordinator) worker() {
	defer close(c.workerDone)
	for {
		j, ok := c.queue.pop()
		if !ok {
			return
		}
		if j.load && c.ctx.Err() != nil {
			j.done <- ErrClosed
			continue
		}
		log.Debug().Str("job", j.name).Int("pending", c.queue.len()).Msg("Running store job")
		err := j.run()
		if err != nil {
			log.Debug().Err(err).Str("job", j.name).Msg("Store job finished with error")
		}
		j.done <- err
	}
}

// submit queues fn and waits for it. If ctx ends first the job still runs;
// only the wait is abandoned.
func (c *Coordinator) submit(ctx context.Context, name string, load bool, fn func() error) error {
	j := &job{name: name, load: load, run: fn, done: make(chan error, 1)}
	if !c.queue.push(j) {
		return ErrClosed
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue queues fn without waiting for it.
func (c *Coordinator) enqueue(name string, fn func() error) {
	j := &job{name: name, run: fn, done: make(chan error, 1)}
	if !c.queue.push(j) {
		log.Debug().Str("job", name).Msg("Dropping store job after close")
	}
}

// LoadAll cancels every probe, empties the list, reads the data file and
// then probes every entry. A file that cannot be read or parsed is logged
// and treated as an empty list.
func (c *Coordinator) LoadAll(ctx context.Context) error {
	return c.submit(ctx, "load", true, func() error {
		c.mu.Lock()
		c.cancelAllProbesLocked()
		c.collection = models.NewCollection()
		c.state = StateLoading
		c.mu.Unlock()
		c.publish()

		loaded, err := c.store.Load(c.path)
		if err != nil {
			logLoadError(c.path, err)
			loaded = models.NewCollection()
		}
		for i := range loaded.Servers {
			if loaded.Servers[i].ID == "" {
				loaded.Servers[i].ID = models.NewID()
			}
			loaded.Servers[i].Status = models.Status{Kind: models.StatusUnloaded}
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		c.collection = loaded
		c.state = StateLoadedData
		for _, entry := range loaded.Servers {
			c.startProbeLocked(entry.ID)
		}
		count := len(loaded.Servers)
		c.mu.Unlock()
		c.publish()

		log.Info().Str("path", c.path).Int("servers", count).Msg("Server list loaded")
		return nil
	})
}

func logLoadError(path string, err error) {
	var parseErr *store.ParseError
	if errors.As(err, &parseErr) {
		log.Error().Err(err).Str("path", path).Msg("Server list is malformed, starting with no servers")
		return
	}
	log.Error().Err(err).Str("path", path).Msg("Failed to read server list, starting with no servers")
}

// Add appends a server, saves the list and starts probing the new entry.
// On a save failure the entry stays in the list and the error is returned.
func (c *Coordinator) Add(ctx context.Context, name, addr string) (models.ServerEntry, error) {
	if _, err := address.Parse(addr); err != nil {
		return models.ServerEntry{}, err
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultServerName
	}

	entry := models.NewServerEntry(name, addr)
	err := c.submit(ctx, "add", false, func() error {
		c.mu.Lock()
		c.collection.Servers = append(c.collection.Servers, entry.Clone())
		snapshot := c.collection.Clone()
		c.startProbeLocked(entry.ID)
		c.mu.Unlock()
		c.publish()

		saveErr := c.save(snapshot)

		log.Info().Str("id", entry.ID).Str("address", entry.Address).Msg("Server added")
		return saveErr
	})
	return entry, err
}

// Delete removes the entry with the given ID and saves the list.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	return c.submit(ctx, "delete", false, func() error {
		c.mu.Lock()
		idx := c.indexLocked(id)
		if idx < 0 {
			c.mu.Unlock()
			return ErrNotFound
		}
		c.cancelProbeLocked(id)
		removed := c.collection.Servers[idx]
		c.collection.Servers = append(c.collection.Servers[:idx], c.collection.Servers[idx+1:]...)
		snapshot := c.collection.Clone()
		c.mu.Unlock()

		saveErr := c.save(snapshot)
		c.publish()

		log.Info().Str("id", id).Str("address", removed.Address).Msg("Server deleted")
		return saveErr
	})
}

// Edit renames and readdresses an entry. Its probe is cancelled, the cached
// status is dropped and exactly one new probe is started before the list is
// saved.
func (c *Coordinator) Edit(ctx context.Context, id, name, addr string) (models.ServerEntry, error) {
	if _, err := address.Parse(addr); err != nil {
		return models.ServerEntry{}, err
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultServerName
	}

	var updated models.ServerEntry
	err := c.submit(ctx, "edit", false, func() error {
		c.mu.Lock()
		idx := c.indexLocked(id)
		if idx < 0 {
			c.mu.Unlock()
			return ErrNotFound
		}
		c.cancelProbeLocked(id)
		entry := &c.collection.Servers[idx]
		entry.Name = name
		entry.Address = strings.TrimSpace(addr)
		entry.Status = models.Status{Kind: models.StatusUnloaded, UpdatedAt: c.now()}
		snapshot := c.collection.Clone()
		// Started under the same lock as the mutation so a concurrent
		// Refresh sees the new check as already running.
		c.startProbeLocked(id)
		updated = c.collection.Servers[idx].Clone()
		c.mu.Unlock()
		c.publish()

		saveErr := c.save(snapshot)

		log.Info().Str("id", id).Str("address", updated.Address).Msg("Server edited")
		return saveErr
	})
	return updated, err
}

// SetFilter changes the name filter and returns the resulting view. The data
// file is not touched.
func (c *Coordinator) SetFilter(substring string) View {
	c.mu.Lock()
	c.filter = substring
	c.mu.Unlock()
	c.publish()
	return c.Snapshot()
}

// Refresh starts probing an entry. Without force an entry whose probe is
// still running is left alone; with force the running probe is replaced.
func (c *Coordinator) Refresh(id string, force bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.indexLocked(id) < 0 {
		c.mu.Unlock()
		return ErrNotFound
	}
	if _, running := c.probes[id]; running && !force {
		c.mu.Unlock()
		return nil
	}
	c.startProbeLocked(id)
	c.mu.Unlock()
	c.publish()
	return nil
}

// Entry returns a copy of the entry with the given ID.
func (c *Coordinator) Entry(id string) (models.ServerEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := c.indexLocked(id)
	if idx < 0 {
		return models.ServerEntry{}, ErrNotFound
	}
	return c.collection.Servers[idx].Clone(), nil
}

// State returns the current data state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Close cancels loading and every probe, lets queued store jobs finish and
// closes all subscriptions. Probe results arriving afterwards are dropped.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.cancelAllProbesLocked()
		c.mu.Unlock()

		c.cancel()
		c.queue.close()
		<-c.workerDone
		c.probeWG.Wait()
		c.closeSubscribers()

		log.Info().Str("path", c.path).Msg("Server list closed")
	})
	return nil
}

func (c *Coordinator) save(snapshot *models.Collection) error {
	if err := c.store.Save(c.path, snapshot); err != nil {
		log.Error().Err(err).Str("path", c.path).Msg("Failed to save server list")
		return err
	}
	return nil
}

// indexLocked finds an entry by ID. Callers hold c.mu.
func (c *Coordinator) indexLocked(id string) int {
	for i := range c.collection.Servers {
		if c.collection.Servers[i].ID == id {
			return i
		}
	}
	return -1
}
