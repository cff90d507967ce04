package model

// solc node ids restart in every compilation job, so one id can name
// different declarations once several build-infos are loaded together.
// idTable keeps one scope per origin (the file a source was loaded from)
// plus a shared scope. An id claimed twice within a scope is ambiguous
// there and resolves to nothing, which leaves callers on name resolution.
type idTable[T comparable] struct {
	local  map[idKey]T
	shared map[int]T
	clash  map[idKey]bool
}

type idKey struct {
	origin string
	id     int
}

// sharedScope cannot collide with a file path.
const sharedScope = "\x00"

func newIDTable[T comparable]() *idTable[T] {
	return &idTable[T]{
		local:  make(map[idKey]T),
		shared: make(map[int]T),
		clash:  make(map[idKey]bool),
	}
}

func (t *idTable[T]) add(origins []string, id int, v T) {
	if id == 0 {
		return
	}
	for _, o := range scopes(origins) {
		k := idKey{o, id}
		if prev, ok := t.local[k]; ok && prev != v {
			t.clash[k] = true
			continue
		}
		t.local[k] = v
	}
	if prev, ok := t.shared[id]; ok && prev != v {
		t.clash[idKey{sharedScope, id}] = true
		return
	}
	t.shared[id] = v
}

// inScope looks id up in the given origins only. known is set when one of
// them claims the id, even ambiguously.
func (t *idTable[T]) inScope(origins []string, id int) (v T, ok, known bool) {
	for _, o := range scopes(origins) {
		k := idKey{o, id}
		if t.clash[k] {
			return v, false, true
		}
		if v, ok := t.local[k]; ok {
			return v, true, true
		}
	}
	return v, false, false
}

func (t *idTable[T]) inShared(id int) (v T, ok bool) {
	if t.clash[idKey{sharedScope, id}] {
		return v, false
	}
	v, ok = t.shared[id]
	return v, ok
}

func scopes(origins []string) []string {
	if len(origins) == 0 {
		return []string{""}
	}
	return origins
}

// resolveID looks id up in t as seen from code loaded from origins. The
// shared scope only serves ids that no origin of the caller declares, as
// with per-file artifacts of one compilation. ambiguous is set when the id
// is known but cannot be bound to a single entry.
func resolveID[T comparable](p *Program, t *idTable[T], origins []string, id int) (v T, ok, ambiguous bool) {
	if id <= 0 {
		return v, false, false
	}
	if v, ok, known := t.inScope(origins, id); known {
		return v, ok, !ok
	}
	if _, declared, known := p.declIDs.inScope(origins, id); known {
		// some other kind of declaration, unless the id itself clashes
		return v, false, !declared
	}
	v, ok = t.inShared(id)
	if !ok && t.clash[idKey{sharedScope, id}] {
		return v, false, true
	}
	return v, ok, false
}
