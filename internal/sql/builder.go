// Package sql builds the four statements the data layer issues against the
// managed table. Every user-supplied or identity-supplied value is emitted as
// a positional ? placeholder; raw values are never concatenated into SQL text.
package sql

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rowguard-labs/rowguard/internal/schema"
)

// Statement is a built SQL statement with its positional arguments.
type Statement struct {
	// SQL is the statement text with ? placeholders.
	SQL string

	// Args are the positional arguments, in placeholder order.
	Args []interface{}
}

// Builder assembles owner-scoped statements for one managed table.
// The fully-qualified table name (catalog.schema.table) is fixed at
// construction and reproduced verbatim in every statement.
type Builder struct {
	table string
}

// NewBuilder creates a builder for the given fully-qualified table name.
func NewBuilder(qualifiedTable string) *Builder {
	return &Builder{table: qualifiedTable}
}

// Table returns the fully-qualified table name statements address.
func (b *Builder) Table() string {
	return b.table
}

// Insert builds the create statement. The caller's domain fields are merged
// with the layer-managed stamps: owner_user, created_at, updated_at.
// Columns are emitted in sorted order so the statement is deterministic.
func (b *Builder) Insert(fields map[string]string, owner string, now time.Time) Statement {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]string, 0, len(names)+3)
	placeholders := make([]string, 0, len(names)+3)
	args := make([]interface{}, 0, len(names)+3)
	for _, name := range names {
		columns = append(columns, name)
		placeholders = append(placeholders, "?")
		args = append(args, fields[name])
	}
	columns = append(columns, schema.ColumnOwnerUser, schema.ColumnCreatedAt, schema.ColumnUpdatedAt)
	placeholders = append(placeholders, "?", "?", "?")
	args = append(args, owner, now, now)

	return Statement{
		SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			b.table, strings.Join(columns, ", "), strings.Join(placeholders, ", ")),
		Args: args,
	}
}

// Select builds the read statement. The owner predicate is always present;
// each non-empty filter adds an ANDed case-preserving substring match.
// Empty filter values are ignored, never matched as empty.
func (b *Builder) Select(owner string, filters map[string]string) Statement {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM %s WHERE %s = ?", b.table, schema.ColumnOwnerUser)
	args := []interface{}{owner}

	names := make([]string, 0, len(filters))
	for name, value := range filters {
		if value == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, " AND %s LIKE ?", name)
		args = append(args, "%"+filters[name]+"%")
	}

	fmt.Fprintf(&sb, " ORDER BY %s DESC", schema.ColumnUpdatedAt)
	return Statement{SQL: sb.String(), Args: args}
}

// Update builds the update statement. updated_at is stamped into the write
// set; the WHERE clause is id = ? AND owner_user = ?, both mandatory.
func (b *Builder) Update(id int64, fields map[string]string, owner string, now time.Time) Statement {
	names := make([]string, 0, len(fields))
	for name, value := range fields {
		if value == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	assignments := make([]string, 0, len(names)+1)
	args := make([]interface{}, 0, len(names)+3)
	for _, name := range names {
		assignments = append(assignments, name+" = ?")
		args = append(args, fields[name])
	}
	assignments = append(assignments, schema.ColumnUpdatedAt+" = ?")
	args = append(args, now)

	args = append(args, id, owner)
	return Statement{
		SQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? AND %s = ?",
			b.table, strings.Join(assignments, ", "), schema.ColumnID, schema.ColumnOwnerUser),
		Args: args,
	}
}

// Delete builds the delete statement, WHERE id = ? AND owner_user = ?.
func (b *Builder) Delete(id int64, owner string) Statement {
	return Statement{
		SQL: fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
			b.table, schema.ColumnID, schema.ColumnOwnerUser),
		Args: []interface{}{id, owner},
	}
}

// Describe builds the statement used to label result columns positionally.
func (b *Builder) Describe() Statement {
	return Statement{
		SQL: fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", b.table),
	}
}
