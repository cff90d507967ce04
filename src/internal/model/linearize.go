package model

// linearizer computes C3 resolution orders over declared bases (most
// derived first). Unknown bases are dropped by the caller beforehand.
type linearizer struct {
	bases  map[string][]string
	memo   map[string][]string
	active map[string]bool
}

func newLinearizer(bases map[string][]string) *linearizer {
	return &linearizer{
		bases:  bases,
		memo:   make(map[string][]string),
		active: make(map[string]bool),
	}
}

func (l *linearizer) linearize(name string) []string {
	if lin, ok := l.memo[name]; ok {
		return lin
	}
	if l.active[name] {
		// inheritance cycle: stop here
		return []string{name}
	}
	l.active[name] = true
	defer delete(l.active, name)

	direct := l.bases[name]
	seqs := make([][]string, 0, len(direct)+1)
	for _, b := range direct {
		seqs = append(seqs, append([]string(nil), l.linearize(b)...))
	}
	seqs = append(seqs, append([]string(nil), direct...))

	lin := []string{name}
	if merged, ok := c3merge(seqs); ok {
		lin = append(lin, merged...)
	} else {
		lin = append(lin, l.depthFirst(name)...)
	}
	l.memo[name] = lin
	return lin
}

func c3merge(seqs [][]string) ([]string, bool) {
	var out []string
	for {
		nonEmpty := seqs[:0]
		for _, s := range seqs {
			if len(s) > 0 {
				nonEmpty = append(nonEmpty, s)
			}
		}
		seqs = nonEmpty
		if len(seqs) == 0 {
			return out, true
		}

		var head string
		found := false
		for _, s := range seqs {
			candidate := s[0]
			if !inTail(seqs, candidate) {
				head, found = candidate, true
				break
			}
		}
		if !found {
			return nil, false
		}
		out = append(out, head)
		for i, s := range seqs {
			if s[0] == head {
				seqs[i] = s[1:]
			}
		}
	}
}

func inTail(seqs [][]string, name string) bool {
	for _, s := range seqs {
		for _, n := range s[1:] {
			if n == name {
				return true
			}
		}
	}
	return false
}

// depthFirst is the fallback order for hierarchies C3 rejects.
func (l *linearizer) depthFirst(name string) []string {
	seen := map[string]bool{name: true}
	var out []string
	var walk func(string)
	walk = func(n string) {
		for _, b := range l.bases[n] {
			if seen[b] {
				continue
			}
			seen[b] = true
			out = append(out, b)
			walk(b)
		}
	}
	walk(name)
	return out
}
