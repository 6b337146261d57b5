package store

import (
	"fmt"
)

// RecordSet is an ordered view of the acting identity's records, labeled
// positionally by the warehouse's column order. An empty set is a valid
// result, distinct from a backend failure.
type RecordSet struct {
	// Columns are the column names, in warehouse order.
	Columns []string

	// Rows are the record values, ordered by updated_at descending.
	Rows [][]interface{}
}

// Len returns the number of records in the set.
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Empty reports whether the identity owns no matching records.
func (rs *RecordSet) Empty() bool {
	return rs.Len() == 0
}

// Field returns the named column's value for the given row.
func (rs *RecordSet) Field(row int, column string) (interface{}, error) {
	if row < 0 || row >= rs.Len() {
		return nil, fmt.Errorf("store: row %d out of range", row)
	}
	for i, name := range rs.Columns {
		if name == column {
			return rs.Rows[row][i], nil
		}
	}
	return nil, fmt.Errorf("store: no column %q in result", column)
}
