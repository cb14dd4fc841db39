package core

// Collection is an insertion-ordered set of observations keyed by ID.
// Every mutation bumps Version. A Collection is not safe for concurrent use;
// Service serializes access to the one it owns.
type Collection struct {
	items   []Observation
	index   map[string]int
	version uint64
}

// NewCollection returns a collection holding a copy of records. Records with
// an ID already seen are dropped so IDs stay unique.
func NewCollection(records []Observation) *Collection {
	c := &Collection{index: make(map[string]int, len(records))}
	for _, o := range records {
		if _, dup := c.index[o.ID]; dup {
			continue
		}
		c.index[o.ID] = len(c.items)
		c.items = append(c.items, o)
	}
	return c
}

// Len returns the number of observations.
func (c *Collection) Len() int { return len(c.items) }

// Version returns the mutation counter.
func (c *Collection) Version() uint64 { return c.version }

// All returns a copy of the observations in insertion order.
func (c *Collection) All() []Observation {
	out := make([]Observation, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the observation with the given ID.
func (c *Collection) Get(id string) (Observation, bool) {
	i, ok := c.index[id]
	if !ok {
		return Observation{}, false
	}
	return c.items[i], true
}

// Add appends o. It fails with ErrDuplicateID if the ID is already present.
func (c *Collection) Add(o Observation) error {
	if _, dup := c.index[o.ID]; dup {
		return ErrDuplicateID
	}
	c.index[o.ID] = len(c.items)
	c.items = append(c.items, o)
	c.version++
	return nil
}

// Merge appends a batch, skipping IDs already present. It returns the
// number of observations added.
func (c *Collection) Merge(batch []Observation) int {
	added := 0
	for _, o := range batch {
		if _, dup := c.index[o.ID]; dup {
			continue
		}
		c.index[o.ID] = len(c.items)
		c.items = append(c.items, o)
		added++
	}
	if added > 0 {
		c.version++
	}
	return added
}

// Replace swaps the observation with o.ID for o, keeping its position.
func (c *Collection) Replace(o Observation) error {
	i, ok := c.index[o.ID]
	if !ok {
		return ErrNotFound
	}
	c.items[i] = o
	c.version++
	return nil
}

// Delete removes the observation with the given ID.
func (c *Collection) Delete(id string) error {
	i, ok := c.index[id]
	if !ok {
		return ErrNotFound
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].ID] = j
	}
	c.version++
	return nil
}

// Clear removes every observation and returns how many were dropped.
func (c *Collection) Clear() int {
	n := len(c.items)
	if n == 0 {
		return 0
	}
	c.items = nil
	c.index = make(map[string]int)
	c.version++
	return n
}
