package presale

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// collection is the fixed name the transaction log is persisted under.
const collection = "presale_transactions"

// SQLiteStorage is the durable transaction log. Records survive restarts
// and reload in the exact order they were appended.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if needed) the log database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate creates the collection table if it doesn't exist. The seq column
// preserves insertion order across reloads.
func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ` + collection + ` (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		fiat_spent TEXT NOT NULL,
		tokens_received INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		transfer_ref TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Append persists a record at the end of the log.
// Returns ErrEmptyID if the record has an empty ID.
func (s *SQLiteStorage) Append(record *TransactionRecord) error {
	if record.ID == "" {
		return ErrEmptyID
	}
	_, err := s.db.Exec(
		`INSERT INTO `+collection+` (id, fiat_spent, tokens_received, timestamp, transfer_ref) VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.FiatSpent.String(), record.TokensReceived, record.Timestamp.UTC().Format(time.RFC3339Nano), record.TransferRef,
	)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// All reloads every record in insertion order, oldest first.
func (s *SQLiteStorage) All() ([]*TransactionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, fiat_spent, tokens_received, timestamp, transfer_ref FROM ` + collection + ` ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []*TransactionRecord
	for rows.Next() {
		var (
			rec       TransactionRecord
			fiat      string
			timestamp string
		)
		if err := rows.Scan(&rec.ID, &fiat, &rec.TokensReceived, &timestamp, &rec.TransferRef); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if rec.FiatSpent, err = decimal.NewFromString(fiat); err != nil {
			return nil, fmt.Errorf("parse fiat_spent %q: %w", fiat, err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", timestamp, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
