// Package resolver maps logical group names used in a timeline to concrete
// device identifiers, preserving first-seen order for the "union of all
// known devices" fallback so the same mappings always resolve to the
// same device order (see DESIGN.md).
package resolver

// MappingEntry is one logical-name-to-devices row, kept in file/insertion
// order so iteration is deterministic.
type MappingEntry struct {
	Logical string
	Devices []string
}

// Resolver holds the logical-name mapping and the default target list.
type Resolver struct {
	entries  []MappingEntry
	index    map[string]int // logical -> position in entries
	defaults []string
}

// New constructs an empty Resolver.
func New() *Resolver {
	return &Resolver{index: make(map[string]int)}
}

// SetMapping replaces a logical name's device list, deduplicating it while
// preserving first-occurrence order. Calling it again for the same name
// overwrites that entry in place, keeping its original position.
func (r *Resolver) SetMapping(logical string, devices []string) {
	deduped := dedupPreserveOrder(devices)
	if idx, ok := r.index[logical]; ok {
		r.entries[idx].Devices = deduped
		return
	}
	r.index[logical] = len(r.entries)
	r.entries = append(r.entries, MappingEntry{Logical: logical, Devices: deduped})
}

// SetDefaults sets the fallback target list used when a request is empty
// and no mapping-derived union is needed.
func (r *Resolver) SetDefaults(devices []string) {
	r.defaults = dedupPreserveOrder(devices)
}

// Resolve maps a requested list of logical names or literal device ids to
// a deduplicated, first-seen-order list of device ids.
//
//   - requested empty, defaults non-empty: return defaults.
//   - requested empty, defaults empty: return the union of all devices
//     across every mapping entry, in first-seen order across entries.
//   - requested non-empty: for each entry, look it up in the mapping; if
//     absent, treat it as a literal device id. Concatenate in request
//     order and dedup by first occurrence.
func (r *Resolver) Resolve(requested []string) []string {
	if len(requested) == 0 {
		if len(r.defaults) > 0 {
			return append([]string(nil), r.defaults...)
		}
		return r.unionOfKnownDevices()
	}

	var out []string
	seen := make(map[string]bool)
	for _, name := range requested {
		devices, ok := r.lookup(name)
		if !ok {
			devices = []string{name}
		}
		for _, d := range devices {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}

func (r *Resolver) lookup(logical string) ([]string, bool) {
	idx, ok := r.index[logical]
	if !ok {
		return nil, false
	}
	return r.entries[idx].Devices, true
}

func (r *Resolver) unionOfKnownDevices() []string {
	var out []string
	seen := make(map[string]bool)
	for _, entry := range r.entries {
		for _, d := range entry.Devices {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}

func dedupPreserveOrder(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
