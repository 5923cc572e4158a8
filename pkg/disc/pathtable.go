package disc

// PathTable maps file paths to their directory records. Every file is
// reachable as "a/b", "/a/b" and "./a/b".
type PathTable struct {
	records map[string]DirectoryRecord
	order   []Entry
	index   map[string]int
}

// NewPathTable creates an empty table
func NewPathTable() *PathTable {
	return &PathTable{records: make(map[string]DirectoryRecord), index: make(map[string]int)}
}

// pathVariants returns the three accepted spellings of a root-relative path
func pathVariants(p string) [3]string {
	return [3]string{p, "/" + p, "./" + p}
}

// Merge adds walked entries to the table. Entries keep their order for
// Entries; a path added twice keeps the latest record.
func (t *PathTable) Merge(entries []Entry) {
	for _, e := range entries {
		if i, exists := t.index[e.Path]; exists {
			t.order[i] = e
		} else {
			t.index[e.Path] = len(t.order)
			t.order = append(t.order, e)
		}
		for _, key := range pathVariants(e.Path) {
			t.records[key] = e.Record
		}
	}
}

// Resolve looks up a file by path
func (t *PathTable) Resolve(path string) (DirectoryRecord, error) {
	record, ok := t.records[path]
	if !ok {
		return DirectoryRecord{}, &PathNotFoundError{Path: path}
	}
	return record, nil
}

// Len returns the number of lookup keys, three per file
func (t *PathTable) Len() int {
	return len(t.records)
}

// Entries returns the files in traversal order, one entry per file
func (t *PathTable) Entries() []Entry {
	out := make([]Entry, len(t.order))
	copy(out, t.order)
	return out
}
