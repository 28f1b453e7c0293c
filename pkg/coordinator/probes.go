package coordinator

import (
	"bytes"
	"context"
	"errors"

	"serverlist/pkg/log"
	"serverlist/pkg/models"
	"serverlist/pkg/probe"
)

// probeJob tracks the one probe an entry may have in flight.
type probeJob struct {
	cancel     context.CancelFunc
	generation uint64
}

// startProbeLocked replaces any running probe of the entry with a new one
// and marks the entry as loading. Callers hold c.mu.
func (c *Coordinator) startProbeLocked(id string) {
	if c.closed {
		return
	}
	idx := c.indexLocked(id)
	if idx < 0 {
		return
	}
	c.cancelProbeLocked(id)

	entry := &c.collection.Servers[idx]
	entry.Status = models.Loading(c.now())

	c.generation++
	ctx, cancel := context.WithCancel(c.ctx)
	job := &probeJob{cancel: cancel, generation: c.generation}
	c.probes[id] = job

	c.probeWG.Add(1)
	go c.runProbe(ctx, id, entry.Address, job.generation)
}

// cancelProbeLocked stops the entry's probe, if any. Callers hold c.mu.
func (c *Coordinator) cancelProbeLocked(id string) {
	if job, ok := c.probes[id]; ok {
		job.cancel()
		delete(c.probes, id)
	}
}

func (c *Coordinator) cancelAllProbesLocked() {
	for id, job := range c.probes {
		job.cancel()
		delete(c.probes, id)
	}
}

func (c *Coordinator) runProbe(ctx context.Context, id, addr string, generation uint64) {
	defer c.probeWG.Done()

	if err := c.limiter.Wait(ctx); err != nil {
		return
	}

	result, err := c.prober.Probe(ctx, addr, c.timeout)
	if errors.Is(err, context.Canceled) {
		log.Debug().Str("id", id).Str("address", addr).Msg("Status probe cancelled")
		return
	}

	c.finishProbe(ctx, id, generation, result, err)
}

// finishProbe applies a probe outcome unless the probe was cancelled,
// replaced, or the coordinator was closed in the meantime.
func (c *Coordinator) finishProbe(ctx context.Context, id string, generation uint64, result *probe.Result, probeErr error) {
	c.mu.Lock()
	job, ok := c.probes[id]
	if c.closed || !ok || job.generation != generation || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	delete(c.probes, id)
	job.cancel()

	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	entry := &c.collection.Servers[idx]

	now := c.now()
	next := models.Failed(probe.Reason(probeErr), now)
	if probeErr == nil {
		next = models.Status{
			Kind:      models.StatusLoaded,
			PingMs:    result.PingMs,
			Online:    result.Online,
			Max:       result.Max,
			MOTD:      result.MOTD,
			Version:   result.Version,
			Protocol:  result.Protocol,
			UpdatedAt: now,
		}
	}
	if !entry.Status.CanTransition(next.Kind) {
		c.mu.Unlock()
		return
	}
	entry.Status = next

	iconChanged := false
	if probeErr == nil && len(result.Favicon) > 0 && !bytes.Equal(result.Favicon, entry.Icon) {
		entry.Icon = bytes.Clone(result.Favicon)
		iconChanged = true
	}
	finished := entry.Clone()
	c.mu.Unlock()

	if probeErr != nil {
		log.Debug().Err(probeErr).Str("id", id).Str("address", finished.Address).Msg("Status probe failed")
	} else {
		log.Debug().Str("id", id).Str("address", finished.Address).Int64("ping_ms", next.PingMs).Msg("Status probe succeeded")
	}

	c.publish()

	if iconChanged {
		c.enqueue("icon", func() error {
			c.mu.RLock()
			snapshot := c.collection.Clone()
			c.mu.RUnlock()
			return c.save(snapshot)
		})
	}

	if c.observer != nil {
		c.observer.ProbeFinished(finished)
	}
}
