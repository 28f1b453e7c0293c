package models

// Collection is the ordered server list as persisted in servers.dat.
// Servers are shown to the user in order; Hidden entries are written by the
// game itself and are only carried through load/save.
type Collection struct {
	Servers []ServerEntry `json:"servers"`
	Hidden  []ServerEntry `json:"hidden,omitempty"`
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{Servers: []ServerEntry{}}
}

// Clone deep-copies the collection.
func (c *Collection) Clone() *Collection {
	out := &Collection{Servers: make([]ServerEntry, len(c.Servers))}
	for i, e := range c.Servers {
		out.Servers[i] = e.Clone()
	}
	if len(c.Hidden) > 0 {
		out.Hidden = make([]ServerEntry, len(c.Hidden))
		for i, e := range c.Hidden {
			out.Hidden[i] = e.Clone()
		}
	}
	return out
}

// Len is the number of visible servers.
func (c *Collection) Len() int {
	return len(c.Servers)
}
