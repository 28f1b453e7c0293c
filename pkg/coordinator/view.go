package coordinator

import (
	"strings"

	"serverlist/pkg/models"
)

// State is the coordinator's data state.
type State string

const (
	// StateLoading means a load is in progress and the list is empty.
	StateLoading State = "loading"
	// StateLoadedData means the list reflects the data file.
	StateLoadedData State = "loaded_data"
)

// View is what a presentation layer renders: the filtered entries in display
// order. Total counts all visible entries, so an empty list can be told apart
// from a filter that matches nothing.
type View struct {
	State   State                `json:"state"`
	Filter  string               `json:"filter"`
	Total   int                  `json:"total"`
	Entries []models.ServerEntry `json:"entries"`
}

// matches is a case-sensitive substring test on the raw name.
func matches(entry models.ServerEntry, filter string) bool {
	return filter == "" || strings.Contains(entry.Name, filter)
}

// viewLocked builds a view. Callers hold c.mu.
func (c *Coordinator) viewLocked() View {
	v := View{
		State:   c.state,
		Filter:  c.filter,
		Total:   len(c.collection.Servers),
		Entries: make([]models.ServerEntry, 0, len(c.collection.Servers)),
	}
	for _, entry := range c.collection.Servers {
		if matches(entry, c.filter) {
			v.Entries = append(v.Entries, entry.Clone())
		}
	}
	return v
}

// Snapshot returns the current view.
func (c *Coordinator) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewLocked()
}

// Subscribe returns a channel that always holds the latest view. Slow readers
// skip intermediate views. The returned func unsubscribes and closes the
// channel.
func (c *Coordinator) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)

	c.subMu.Lock()
	if c.subs == nil {
		c.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.nextSub++
	id := c.nextSub
	c.subs[id] = ch
	ch <- c.Snapshot()
	c.subMu.Unlock()

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// publish pushes the current view to every subscriber. It must not be called
// with c.mu held.
func (c *Coordinator) publish() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if len(c.subs) == 0 {
		return
	}

	v := c.Snapshot()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

func (c *Coordinator) closeSubscribers() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subs = nil
}
