package presale

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func sampleRecord(i int) *TransactionRecord {
	return &TransactionRecord{
		ID:             fmt.Sprintf("rec-%d", i),
		FiatSpent:      decimal.RequireFromString("150.25").Add(decimal.NewFromInt(int64(i))),
		TokensReceived: int64(1_000_000 * (i + 1)),
		Timestamp:      time.Date(2025, 6, 26, 10, 0, i, 0, time.UTC),
		TransferRef:    fmt.Sprintf("sig-%d", i),
	}
}

func TestLocalStorageRoundTrip(t *testing.T) {
	s := NewLocalStorage()
	for i := 0; i < 3; i++ {
		if err := s.Append(sampleRecord(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	records, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, rec := range records {
		if rec.ID != fmt.Sprintf("rec-%d", i) {
			t.Errorf("records[%d].ID = %q, insertion order broken", i, rec.ID)
		}
	}
}

func TestLocalStorageRejectsEmptyID(t *testing.T) {
	s := NewLocalStorage()
	err := s.Append(&TransactionRecord{TransferRef: "sig"})
	if !errors.Is(err, ErrEmptyID) {
		t.Fatalf("error = %v, want ErrEmptyID", err)
	}
}

func TestSQLiteStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presale.db")

	s, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	const n = 5
	for i := 0; i < n; i++ {
		if err := s.Append(sampleRecord(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reload must reproduce the exact sequence previously appended.
	reopened, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(records) != n {
		t.Fatalf("got %d records, want %d", len(records), n)
	}
	for i, rec := range records {
		want := sampleRecord(i)
		if rec.ID != want.ID || rec.TransferRef != want.TransferRef {
			t.Errorf("records[%d] = %+v, want %+v", i, rec, want)
		}
		if !rec.FiatSpent.Equal(want.FiatSpent) {
			t.Errorf("records[%d].FiatSpent = %s, want %s", i, rec.FiatSpent, want.FiatSpent)
		}
		if rec.TokensReceived != want.TokensReceived {
			t.Errorf("records[%d].TokensReceived = %d, want %d", i, rec.TokensReceived, want.TokensReceived)
		}
		if !rec.Timestamp.Equal(want.Timestamp) {
			t.Errorf("records[%d].Timestamp = %s, want %s", i, rec.Timestamp, want.Timestamp)
		}
	}
}

func TestSQLiteStorageRejectsEmptyID(t *testing.T) {
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "presale.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	defer s.Close()

	if err := s.Append(&TransactionRecord{TransferRef: "sig"}); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("error = %v, want ErrEmptyID", err)
	}
}
