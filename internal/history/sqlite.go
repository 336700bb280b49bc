package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"
)

// SchemaVersion is the current history schema version.
const SchemaVersion = "1"

const driverName = "sqlite"

// SQLite is a SQLite-backed store.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite opens (or creates) the history database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			expression TEXT NOT NULL,
			result TEXT NOT NULL,
			actual_result TEXT NOT NULL,
			forced_result TEXT,
			forced INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			operation_type TEXT NOT NULL,
			operands TEXT NOT NULL,
			year INTEGER,
			age INTEGER,
			pincode TEXT,
			address_taluk TEXT,
			address_district TEXT,
			address_state TEXT
		);
		CREATE INDEX IF NOT EXISTS records_pincode ON records (pincode);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	var version string
	err = db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.Exec("INSERT INTO metadata (key, value) VALUES ('schema_version', ?)", SchemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("set schema version: %w", err)
		}
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	case version != SchemaVersion:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return &SQLite{db: db}, nil
}

const selectColumns = `id, expression, result, actual_result, forced_result, forced, timestamp,
	operation_type, operands, year, age, pincode, address_taluk, address_district, address_state`

func (s *SQLite) Add(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	operands, err := json.Marshal(rec.Operands)
	if err != nil {
		return fmt.Errorf("encode operands: %w", err)
	}

	var forcedResult sql.NullString
	if rec.ForcedResult != nil {
		forcedResult = sql.NullString{String: formatValue(*rec.ForcedResult), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, expression, result, actual_result, forced_result, forced, timestamp,
			operation_type, operands, year, age, pincode, address_taluk, address_district, address_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.Expression, formatValue(rec.Result), formatValue(rec.ActualResult), forcedResult,
		rec.Forced, rec.Timestamp, rec.OperationType, string(operands),
		nullInt(rec.Year), nullInt(rec.Age), nullString(rec.Pincode),
		nullString(rec.AddressTaluk), nullString(rec.AddressDistrict), nullString(rec.AddressState),
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLite) PatchAddress(ctx context.Context, patch AddressPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const unresolved = `pincode = ? AND address_taluk IS NULL AND address_district IS NULL AND address_state IS NULL`

	var (
		res sql.Result
		err error
	)
	if patch.RecordID != "" {
		res, err = s.db.ExecContext(ctx, `
			UPDATE records SET address_taluk = ?, address_district = ?, address_state = ?
			WHERE id = ? AND `+unresolved,
			patch.AddressTaluk, patch.AddressDistrict, patch.AddressState, patch.RecordID, patch.Pincode,
		)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE records SET address_taluk = ?, address_district = ?, address_state = ?
			WHERE seq = (SELECT seq FROM records WHERE `+unresolved+` ORDER BY seq DESC LIMIT 1)`,
			patch.AddressTaluk, patch.AddressDistrict, patch.AddressState, patch.Pincode,
		)
	}
	if err != nil {
		return false, fmt.Errorf("patch address for pincode %s: %w", patch.Pincode, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM records WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (s *SQLite) List(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM records ORDER BY seq DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM records")
	return err
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec                             Record
		result, actual, operands        string
		forcedResult                    sql.NullString
		year, age                       sql.NullInt64
		pincode, taluk, district, state sql.NullString
	)

	err := row.Scan(&rec.ID, &rec.Expression, &result, &actual, &forcedResult, &rec.Forced, &rec.Timestamp,
		&rec.OperationType, &operands, &year, &age, &pincode, &taluk, &district, &state)
	if err != nil {
		return Record{}, err
	}

	if rec.Result, err = parseValue(result); err != nil {
		return Record{}, err
	}
	if rec.ActualResult, err = parseValue(actual); err != nil {
		return Record{}, err
	}
	if forcedResult.Valid {
		v, err := parseValue(forcedResult.String)
		if err != nil {
			return Record{}, err
		}
		rec.ForcedResult = &v
	}
	if err := json.Unmarshal([]byte(operands), &rec.Operands); err != nil {
		return Record{}, fmt.Errorf("decode operands of %s: %w", rec.ID, err)
	}

	rec.Year = intPtr(year)
	rec.Age = intPtr(age)
	rec.Pincode = stringPtr(pincode)
	rec.AddressTaluk = stringPtr(taluk)
	rec.AddressDistrict = stringPtr(district)
	rec.AddressState = stringPtr(state)
	return rec, nil
}

// formatValue keeps non-finite results, which SQLite REAL columns cannot hold.
func formatValue(v Value) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 64)
}

func parseValue(s string) (Value, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// ParseFloat returns ±Inf with a range error for out-of-range input.
		if errors.Is(err, strconv.ErrRange) {
			return Value(f), nil
		}
		return Value(math.NaN()), fmt.Errorf("parse stored value %q: %w", s, err)
	}
	return Value(f), nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
