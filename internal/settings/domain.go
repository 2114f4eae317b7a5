package settings

import (
	"fmt"
	"sort"
)

// Values is the settings payload from the upstream API. Its shape is not
// part of any contract; it is rendered as opaque key/value pairs.
type Values map[string]any

// Entry is one displayable settings row.
type Entry struct {
	Key   string
	Value string
}

// Entries flattens the payload into rows sorted by key for stable rendering.
func (v Values) Entries() []Entry {
	entries := make([]Entry, 0, len(v))
	for key, value := range v {
		entries = append(entries, Entry{Key: key, Value: fmt.Sprintf("%v", value)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
