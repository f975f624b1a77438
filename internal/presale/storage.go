package presale

import (
	"errors"
	"sync"
)

// ErrEmptyID is returned when trying to append a record with an empty ID.
var ErrEmptyID = errors.New("empty record ID")

// Storage is the transaction log: an append-only, insertion-ordered record
// store. Append does not validate business rules; that is the Service's job.
type Storage interface {
	Append(record *TransactionRecord) error
	All() ([]*TransactionRecord, error)
}

// LocalStorage keeps the transaction log in memory. Used in tests and in
// runs configured without a database path.
type LocalStorage struct {
	mu      sync.Mutex
	records []*TransactionRecord
}

// NewLocalStorage instantiates an empty in-memory transaction log.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// Append adds a record to the end of the log.
// Returns ErrEmptyID if the record has an empty ID.
func (l *LocalStorage) Append(record *TransactionRecord) error {
	if record.ID == "" {
		return ErrEmptyID
	}
	l.mu.Lock()
	l.records = append(l.records, record)
	l.mu.Unlock()
	return nil
}

// All returns every record in insertion order, oldest first.
func (l *LocalStorage) All() ([]*TransactionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*TransactionRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}
