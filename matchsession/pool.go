package matchsession

import "sync"

// Pool is the rank-bucketed set of sessions waiting for an opponent. It is
// the one structure in the matcher requiring mutual exclusion: Take must
// never hand the same waiting session to two concurrent requests.
//
// Waiting sessions are not time-bounded here; eviction is out of scope.
type Pool struct {
	mu     sync.Mutex
	byRank map[uint32][]UUID
}

func NewPool() *Pool {
	return &Pool{byRank: make(map[uint32][]UUID)}
}

// Take removes and returns one waiting session whose rank exactly equals
// rank. Matching is exact-rank only; no bucket widening.
func (p *Pool) Take(rank uint32) (UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := p.byRank[rank]
	if len(ids) == 0 {
		return "", false
	}
	id := ids[0]
	if len(ids) == 1 {
		delete(p.byRank, rank)
	} else {
		p.byRank[rank] = ids[1:]
	}
	return id, true
}

// Add inserts a waiting session keyed by rank. It is also used to re-insert
// a session after a failed merge, restoring pool consistency.
func (p *Pool) Add(rank uint32, id UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byRank[rank] = append(p.byRank[rank], id)
}

// Remove deletes a specific waiting session, reporting whether it was
// present.
func (p *Pool) Remove(rank uint32, id UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := p.byRank[rank]
	for i, v := range ids {
		if v == id {
			ids = append(ids[:i], ids[i+1:]...)
			if len(ids) == 0 {
				delete(p.byRank, rank)
			} else {
				p.byRank[rank] = ids
			}
			return true
		}
	}
	return false
}

// Len returns the total number of waiting sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ids := range p.byRank {
		n += len(ids)
	}
	return n
}

// LenByRank returns the number of waiting sessions for one rank.
func (p *Pool) LenByRank(rank uint32) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byRank[rank])
}
