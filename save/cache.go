package save

import (
	"maps"
	"slices"
)

// recordCache maps resolved slot names to the live record for that slot.
// There is no eviction: entries stay until released or the Subsystem closes.
type recordCache struct {
	records map[string]Record
}

func newRecordCache() *recordCache {
	return &recordCache{records: make(map[string]Record)}
}

func (c *recordCache) get(slot string) Record {
	return c.records[slot]
}

// put overwrites any record already cached for slot.
func (c *recordCache) put(slot string, rec Record) {
	c.records[slot] = rec
}

func (c *recordCache) remove(slot string) bool {
	if _, ok := c.records[slot]; !ok {
		return false
	}
	delete(c.records, slot)
	return true
}

func (c *recordCache) len() int {
	return len(c.records)
}

// slots returns the cached slot names in sorted order.
func (c *recordCache) slots() []string {
	return slices.Sorted(maps.Keys(c.records))
}

func (c *recordCache) clear() {
	clear(c.records)
}
