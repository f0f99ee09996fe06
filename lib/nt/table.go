package nt

// Table resolves names below a fixed prefix and caches the resulting entries.
//
// Both the cache and the service see the full path prefix + "/" + name.
// Cached entries are never invalidated; since an Entry always reflects the
// current remote state this only pins the name to handle mapping.
//
// A Table is not safe for concurrent use.
type Table struct {
	inst   *Instance
	prefix string
	cache  map[string]Entry
}

// NewTable creates a table with an empty cache. The instance is borrowed.
func NewTable(inst *Instance, prefix string) *Table {
	return &Table{
		inst:   inst,
		prefix: prefix,
		cache:  make(map[string]Entry),
	}
}

// Prefix returns the path prefix of the table.
func (t *Table) Prefix() string {
	return t.prefix
}

// Instance returns the instance the table resolves against.
func (t *Table) Instance() *Instance {
	return t.inst
}

// Get returns the entry for prefix + "/" + name, resolving it on a cache miss.
// A failed resolution is logged, not cached, and yields an entry that reports
// TypeUnassigned.
func (t *Table) Get(name string) Entry {
	path := t.prefix + "/" + name
	if e, ok := t.cache[path]; ok {
		return e
	}

	e, err := t.inst.resolve(path)
	if err != nil {
		Logger.Warningf("resolving %q: %v", path, err)
		return e
	}
	t.cache[path] = e
	return e
}

// Set is shorthand for t.Get(name).SetValue(v).
func (t *Table) Set(name string, v Value) error {
	return t.Get(name).SetValue(v)
}

// Put is an alias of Set.
func (t *Table) Put(name string, v Value) error {
	return t.Set(name, v)
}

// GetSubTable returns a table for prefix + "/" + key with its own empty cache.
func (t *Table) GetSubTable(key string) *Table {
	return NewTable(t.inst, t.prefix+"/"+key)
}

// GetFiltered lists all existing entries below t.Prefix() + prefix (no
// separator is inserted) that match mask, and caches each of them under its
// full name. Entries whose name is not valid UTF-8 are returned but not cached.
func (t *Table) GetFiltered(prefix string, mask EntryMask) []Entry {
	entries := t.inst.GetEntriesFiltered(t.prefix+prefix, mask)
	for _, e := range entries {
		if name, ok := e.Name(); ok {
			t.cache[name] = e
		}
	}
	return entries
}
