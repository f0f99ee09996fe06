package sqlite

import (
	"bufio"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ValentinKolb/dNT/lib/db"
	"github.com/lni/dragonboat/v4/logger"
	_ "modernc.org/sqlite"
)

var Logger = logger.GetLogger("db")

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum      = "DNTSQL\x00\x00" // Snapshot format identifier
	sqliteVersion = 1                // Snapshot version

	schemaSQL = `CREATE TABLE IF NOT EXISTS entries (
	key   BLOB PRIMARY KEY,
	value BLOB NOT NULL,
	idx   INTEGER NOT NULL
) WITHOUT ROWID;`

	upsertSQL = `INSERT INTO entries (key, value, idx) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, idx = excluded.idx
WHERE excluded.idx >= entries.idx`
)

// --------------------------------------------------------------------------
// Core SQLite database structure
// --------------------------------------------------------------------------

type sqliteImpl struct {
	db        *sql.DB
	path      string
	currIndex atomic.Uint64
}

// DBOptions configures the SQLite engine
type DBOptions struct {
	// Path of the database file. An empty path keeps the database in memory.
	Path string
}

// NewSQLiteDB opens (or creates) a SQLite backed KVDB.
// Entries already stored in the file are available immediately and the
// write index resumes from the highest stored index.
func NewSQLiteDB(opts *DBOptions) (db.KVDB, error) {
	if opts == nil {
		opts = &DBOptions{}
	}
	path := opts.Path
	if path == "" {
		path = ":memory:"
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// a single connection serializes writers and keeps one shared in-memory database
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	impl := &sqliteImpl{db: conn, path: path}

	var maxIdx sql.NullInt64
	if err := conn.QueryRow("SELECT MAX(idx) FROM entries").Scan(&maxIdx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading write index: %w", err)
	}
	if maxIdx.Valid {
		impl.SetWriteIdx(uint64(maxIdx.Int64))
	}

	return impl, nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

func (s *sqliteImpl) Set(key string, value []byte, writeIndex uint64) {
	s.SetWriteIdx(writeIndex)
	if _, err := s.db.Exec(upsertSQL, []byte(key), nonNil(value), int64(writeIndex)); err != nil {
		Logger.Errorf("set %q: %v", key, err)
	}
}

// SetIf runs the condition inside a transaction.
// cond must not access the database.
func (s *sqliteImpl) SetIf(key string, value []byte, writeIndex uint64, cond db.SetIfFunc) db.SetIfResult {
	s.SetWriteIdx(writeIndex)

	result, err := s.setIf(key, value, writeIndex, cond)
	if err != nil {
		Logger.Errorf("set-if %q: %v", key, err)
		return db.SetIfFailed
	}
	return result
}

func (s *sqliteImpl) setIf(key string, value []byte, writeIndex uint64, cond db.SetIfFunc) (db.SetIfResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return db.SetIfFailed, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		old    []byte
		oldIdx int64
		loaded = true
	)
	err = tx.QueryRow("SELECT value, idx FROM entries WHERE key = ?", []byte(key)).Scan(&old, &oldIdx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		loaded = false
	case err != nil:
		return db.SetIfFailed, fmt.Errorf("reading current value: %w", err)
	}

	// stale writes are ignored
	if loaded && writeIndex < uint64(oldIdx) {
		return db.SetIfStale, nil
	}
	if !cond(old, loaded) {
		return db.SetIfRejected, nil
	}

	if _, err := tx.Exec(upsertSQL, []byte(key), nonNil(value), int64(writeIndex)); err != nil {
		return db.SetIfFailed, fmt.Errorf("writing value: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return db.SetIfFailed, fmt.Errorf("committing: %w", err)
	}
	return db.SetIfApplied, nil
}

func (s *sqliteImpl) Delete(key string, writeIndex uint64) {
	s.SetWriteIdx(writeIndex)
	if _, err := s.db.Exec("DELETE FROM entries WHERE key = ? AND idx <= ?", []byte(key), int64(writeIndex)); err != nil {
		Logger.Errorf("delete %q: %v", key, err)
	}
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

func (s *sqliteImpl) Get(key string) ([]byte, uint64, bool) {
	var (
		value []byte
		idx   int64
	)
	err := s.db.QueryRow("SELECT value, idx FROM entries WHERE key = ?", []byte(key)).Scan(&value, &idx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			Logger.Errorf("get %q: %v", key, err)
		}
		return nil, 0, false
	}
	return nonNil(value), uint64(idx), true
}

func (s *sqliteImpl) Has(key string) bool {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM entries WHERE key = ?", []byte(key)).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		Logger.Errorf("has %q: %v", key, err)
	}
	return err == nil
}

// Range reads all matching rows before calling fn, so fn may use the database.
func (s *sqliteImpl) Range(prefix string, fn db.RangeFunc) {
	type row struct {
		key   []byte
		value []byte
		idx   int64
	}

	var (
		rows *sql.Rows
		err  error
	)
	lower := []byte(prefix)
	if upper, ok := prefixUpperBound(lower); ok {
		rows, err = s.db.Query("SELECT key, value, idx FROM entries WHERE key >= ? AND key < ? ORDER BY key", lower, upper)
	} else {
		rows, err = s.db.Query("SELECT key, value, idx FROM entries WHERE key >= ? ORDER BY key", lower)
	}
	if err != nil {
		Logger.Errorf("range %q: %v", prefix, err)
		return
	}

	var result []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key, &r.value, &r.idx); err != nil {
			Logger.Errorf("range %q: %v", prefix, err)
			break
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		Logger.Errorf("range %q: %v", prefix, err)
	}
	rows.Close()

	for _, r := range result {
		if !fn(string(r.key), r.value, uint64(r.idx)) {
			return
		}
	}
}

// prefixUpperBound returns the smallest key greater than every key with the prefix.
// ok is false if no such key exists (empty prefix or all 0xff bytes).
func prefixUpperBound(prefix []byte) (upper []byte, ok bool) {
	upper = append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1], true
		}
	}
	return nil, false
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save writes all entries in key order.
func (s *sqliteImpl) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	type entry struct {
		key   string
		value []byte
		idx   uint64
	}
	var entries []entry
	s.Range("", func(key string, value []byte, idx uint64) bool {
		entries = append(entries, entry{key, value, idx})
		return true
	})

	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(sqliteVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, e := range entries {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(e.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(e.key); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, e.idx); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(e.value))); err != nil {
			return err
		}
		if _, err := bw.Write(e.value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load replaces every entry in a single transaction.
func (s *sqliteImpl) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != sqliteVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, sqliteVersion)
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}

	var maxIndex uint64
	for i := uint64(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(br, key); err != nil {
			return err
		}
		var idx uint64
		if err := binary.Read(br, binary.LittleEndian, &idx); err != nil {
			return err
		}
		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return err
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return err
		}

		if _, err := tx.Exec("INSERT INTO entries (key, value, idx) VALUES (?, ?, ?)", key, value, int64(idx)); err != nil {
			return fmt.Errorf("inserting entry: %w", err)
		}
		if idx > maxIndex {
			maxIndex = idx
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	s.SetWriteIdx(maxIndex)
	return nil
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

func (s *sqliteImpl) GetInfo() db.DatabaseInfo {
	var (
		entries int
		size    sql.NullInt64
	)
	err := s.db.QueryRow("SELECT COUNT(*), SUM(length(key) + length(value) + 8) FROM entries").Scan(&entries, &size)
	if err != nil {
		Logger.Errorf("info: %v", err)
	}

	return db.DatabaseInfo{
		Entries:   entries,
		SizeBytes: int(size.Int64),
		DbType:    db.ImplSQLite,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureSetIf, db.FeatureDelete,
			db.FeatureGet, db.FeatureHas, db.FeatureRange,
			db.FeatureSave, db.FeatureLoad,
		},
		Metadata: &struct {
			Path              string `json:"path"`
			CurrentWriteIndex uint64 `json:"current_write_index"`
		}{
			Path:              s.path,
			CurrentWriteIndex: s.currIndex.Load(),
		},
	}
}

func (s *sqliteImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureSetIf |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureRange |
		db.FeatureSave |
		db.FeatureLoad
	return supportedFeatures&feature == feature
}

func (s *sqliteImpl) Close() error {
	return s.db.Close()
}

// --------------------------------------------------------------------------
// Index Management
// --------------------------------------------------------------------------

func (s *sqliteImpl) SetWriteIdx(newIdx uint64) {
	for {
		currIdx := s.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if s.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

func (s *sqliteImpl) WriteIdx() uint64 {
	return s.currIndex.Load()
}
