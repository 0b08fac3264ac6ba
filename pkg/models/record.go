package models

// ValueKind is the JSON type of a raw telemetry value
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a scalar JSON value. Numbers keep their literal text so the
// snapshot CSV reproduces what the endpoint sent.
type Value struct {
	Kind ValueKind
	Text string
}

// Field is one key/value pair of a record, in the order it was received
type Field struct {
	Key   string
	Value Value
}

// Record is one row of raw telemetry
type Record struct {
	Fields []Field
}

// Get returns the value stored under key
func (r Record) Get(key string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Table is the full set of records fetched in one run. Columns is the union
// of record keys in first-appearance order.
type Table struct {
	Columns []string
	Records []Record
}

// Len returns the number of records
func (t *Table) Len() int {
	return len(t.Records)
}

// Append adds a record, extending Columns with any key not seen before
func (t *Table) Append(rec Record) {
	for _, f := range rec.Fields {
		if !t.hasColumn(f.Key) {
			t.Columns = append(t.Columns, f.Key)
		}
	}
	t.Records = append(t.Records, rec)
}

func (t *Table) hasColumn(key string) bool {
	for _, c := range t.Columns {
		if c == key {
			return true
		}
	}
	return false
}
