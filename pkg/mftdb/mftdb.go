package mftdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/gomftnav/gomftnav/pkg/logger"
	"github.com/gomftnav/gomftnav/pkg/ntfs"
)

//one transaction per batch keeps sqlite inserts fast
const batchSize = 10000

//Writer stores decoded MFT entries in a sqlite database.
type Writer struct {
	db    *sql.DB
	tx    *sql.Tx
	stmt  *sql.Stmt
	batch int
	total int
}

//Open creates (or wipes) the entries table in the database at path.
func Open(path string) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}
	stmts := []string{
		`DROP TABLE IF EXISTS entries`,
		`CREATE TABLE entries (
			entry INTEGER NOT NULL PRIMARY KEY, name TEXT, namespace INTEGER, parent INTEGER,
			inUse INTEGER, isDir INTEGER, corrupt INTEGER, reparseTag INTEGER, reparseData BLOB
		)`,
		`CREATE INDEX idx_parent ON entries(parent)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			db.Close()
			return nil, fmt.Errorf("preparing entries table: %w", err)
		}
	}
	return &Writer{db: db}, nil
}

//Add queues one entry, committing whenever a batch fills. Absent name and
//reparse values are stored as NULLs.
func (w *Writer) Add(e ntfs.Entry) error {
	if w.tx == nil {
		tx, err := w.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT INTO entries
			(entry, name, namespace, parent, inUse, isDir, corrupt, reparseTag, reparseData)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}
		w.tx, w.stmt = tx, stmt
	}
	var name, ns, parent, tag, data interface{}
	if e.HasName {
		name, ns, parent = e.Name, e.Namespace, int64(e.ParentEntry())
	}
	if e.HasReparse {
		tag, data = int64(e.ReparseTag), e.ReparseData
	}
	if _, err := w.stmt.Exec(int64(e.Number), name, ns, parent, e.InUse, e.IsDir, e.Corrupt, tag, data); err != nil {
		return err
	}
	w.batch++
	if w.batch >= batchSize {
		return w.flush()
	}
	return nil
}

func (w *Writer) flush() error {
	if w.tx == nil {
		return nil
	}
	if err := w.stmt.Close(); err != nil {
		return err
	}
	if err := w.tx.Commit(); err != nil {
		return err
	}
	w.total += w.batch
	logger.Logger.Sugar().Debugf("committed %d entries, %d total", w.batch, w.total)
	w.tx, w.stmt, w.batch = nil, nil, 0
	return nil
}

//Total is how many entries have been committed so far.
func (w *Writer) Total() int { return w.total }

//Close commits whatever is still queued and closes the database.
func (w *Writer) Close() error {
	flushErr := w.flush()
	if err := w.db.Close(); err != nil {
		return err
	}
	return flushErr
}
