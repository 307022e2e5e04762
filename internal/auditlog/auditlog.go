// Package auditlog records every ledger change in logs/audit-log.csv.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action names a kind of ledger change.
type Action string

const (
	ActionInit               Action = "init"
	ActionAccountAdded       Action = "account_added"
	ActionAccountRenamed     Action = "account_renamed"
	ActionAccountDeleted     Action = "account_deleted"
	ActionTransactionAdded   Action = "transaction_added"
	ActionTransactionUpdated Action = "transaction_updated"
	ActionTransactionDeleted Action = "transaction_deleted"
	ActionImport             Action = "import"
	ActionExport             Action = "export"
)

// NoID marks an entry that does not refer to an account or transaction.
const NoID = -1

// Entry is one row in the audit log.
type Entry struct {
	Timestamp     time.Time
	EventID       string
	Action        Action
	AccountID     int
	TransactionID int
	Details       string
}

// Header is the CSV header for audit-log.csv.
const Header = "timestamp,event_id,action,account_id,transaction_id,details"

const (
	numFields        = 6
	logDir           = "logs"
	logFile          = "logs/audit-log.csv"
	colTimestamp     = 0
	colEventID       = 1
	colAction        = 2
	colAccountID     = 3
	colTransactionID = 4
	colDetails       = 5
)

// NewEntry returns an entry stamped with now and a fresh event id.
func NewEntry(now time.Time, action Action, accountID, transactionID int, details string) Entry {
	return Entry{
		Timestamp:     now,
		EventID:       uuid.NewString(),
		Action:        action,
		AccountID:     accountID,
		TransactionID: transactionID,
		Details:       details,
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colEventID] = e.EventID
	row[colAction] = string(e.Action)
	row[colAccountID] = formatID(e.AccountID)
	row[colTransactionID] = formatID(e.TransactionID)
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	accountID, err := parseID(record[colAccountID])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing account_id: %w", err)
	}
	txID, err := parseID(record[colTransactionID])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing transaction_id: %w", err)
	}

	return Entry{
		Timestamp:     ts,
		EventID:       record[colEventID],
		Action:        Action(record[colAction]),
		AccountID:     accountID,
		TransactionID: txID,
		Details:       record[colDetails],
	}, nil
}

func formatID(id int) string {
	if id < 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func parseID(s string) (int, error) {
	if s == "" {
		return NoID, nil
	}
	return strconv.Atoi(s)
}

// Append writes entries to <dataDir>/logs/audit-log.csv, creating the file and header if needed.
func Append(dataDir string, entries ...Entry) error {
	dir := filepath.Join(dataDir, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(dataDir, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <dataDir>/logs/audit-log.csv.
// Returns an empty slice if the file does not exist.
func Read(dataDir string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(dataDir, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
