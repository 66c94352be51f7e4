package services

import "sync"

// ticketLocks serializes mutating operations per ticket. TryLock keeps a
// contended caller from queueing behind a slow operation; it gets a
// ConflictError and retries the whole call instead.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{locks: make(map[uint]*sync.Mutex)}
}

func (l *ticketLocks) lockFor(id uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// acquire locks the ticket and returns its release func, or a
// ConflictError when another mutation holds it.
func (l *ticketLocks) acquire(id uint) (func(), error) {
	m := l.lockFor(id)
	if !m.TryLock() {
		return nil, &ConflictError{Msg: "ticket is being modified by another request"}
	}
	return m.Unlock, nil
}

// acquireAll locks several tickets in ascending id order so two merges
// touching the same tickets cannot deadlock. On any conflict every lock
// taken so far is released.
func (l *ticketLocks) acquireAll(ids []uint) (func(), error) {
	sorted := make([]uint, len(ids))
	copy(sorted, ids)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	var releases []func()
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, id := range sorted {
		release, err := l.acquire(id)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
