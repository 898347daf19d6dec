package store

import (
	"sync"
	"sync/atomic"

	"github.com/ssargent/slotdb/pkg/record"
)

// LockableRecord is one record slot: the current snapshot plus the slot's
// lock and its owner. A slot keeps its LockableRecord for the life of the
// table; deletion and re-creation only swap the snapshot.
type LockableRecord struct {
	record atomic.Pointer[record.Record]

	lock    sync.Mutex // held while the record is locked
	ownerMu sync.Mutex
	owner   Owner
}

func newLockableRecord(r *record.Record) *LockableRecord {
	l := &LockableRecord{}
	l.record.Store(r)
	return l
}

// Record returns the current snapshot.
func (l *LockableRecord) Record() *record.Record {
	return l.record.Load()
}

func (l *LockableRecord) replace(r *record.Record) {
	l.record.Store(r)
}

// Lock blocks until the slot is free and then records owner as its holder.
func (l *LockableRecord) Lock(owner Owner) {
	l.lock.Lock()
	l.ownerMu.Lock()
	l.owner = owner
	l.ownerMu.Unlock()
}

// Unlock releases the slot if owner holds it and reports whether it did.
func (l *LockableRecord) Unlock(owner Owner) bool {
	l.ownerMu.Lock()
	if owner == NoOwner || l.owner != owner {
		l.ownerMu.Unlock()
		return false
	}
	l.owner = NoOwner
	l.ownerMu.Unlock()

	l.lock.Unlock()
	return true
}

// Owner returns the current lock holder, or NoOwner.
func (l *LockableRecord) Owner() Owner {
	l.ownerMu.Lock()
	defer l.ownerMu.Unlock()
	return l.owner
}
