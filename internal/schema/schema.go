// Package schema provides the form schema for the managed table.
// The schema declares the domain columns a front end may read and write;
// ownership and timestamp columns are never part of it.
package schema

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/rowguard-labs/rowguard/internal/errors"
)

// Managed column names. The data layer stamps these itself; a form schema
// may not declare them and a caller may not write them.
const (
	ColumnID        = "id"
	ColumnOwnerUser = "owner_user"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// IsManagedColumn reports whether the column is stamped by the data layer.
func IsManagedColumn(name string) bool {
	switch name {
	case ColumnID, ColumnOwnerUser, ColumnCreatedAt, ColumnUpdatedAt:
		return true
	}
	return false
}

// Column declares one domain column of the managed table.
type Column struct {
	// Name is the column name in the warehouse table.
	Name string `json:"name" yaml:"name"`

	// Label is the human-readable label shown by front ends.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Required marks the column as mandatory on create.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// Filterable marks the column as usable in list filters.
	Filterable bool `json:"filterable,omitempty" yaml:"filterable,omitempty"`
}

// FormSchema is the set of domain columns exposed to front ends.
type FormSchema struct {
	// Columns are the declared domain columns, in display order.
	Columns []Column `json:"columns" yaml:"columns"`

	// cachedByName is populated on first access for efficient lookups.
	cachedByName map[string]Column
}

var columnNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate checks the schema definition.
func (s *FormSchema) Validate() error {
	if len(s.Columns) == 0 {
		return errors.NewInvalidSchema("columns", "at least one domain column is required")
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		if col.Name == "" {
			return errors.NewInvalidSchema("name", "column name is required")
		}
		if !columnNamePattern.MatchString(col.Name) {
			return errors.NewInvalidSchema(col.Name, "column names must be lowercase identifiers")
		}
		if IsManagedColumn(col.Name) {
			return errors.NewInvalidSchema(col.Name, "managed columns may not appear in a form schema")
		}
		if seen[col.Name] {
			return errors.NewInvalidSchema(col.Name, "duplicate column")
		}
		seen[col.Name] = true
	}
	return nil
}

// Column returns the declared column with the given name.
func (s *FormSchema) Column(name string) (Column, bool) {
	if s.cachedByName == nil {
		s.cachedByName = make(map[string]Column, len(s.Columns))
		for _, col := range s.Columns {
			s.cachedByName[col.Name] = col
		}
	}
	col, ok := s.cachedByName[name]
	return col, ok
}

// Required returns the names of columns that must be non-empty on create.
func (s *FormSchema) Required() []string {
	var required []string
	for _, col := range s.Columns {
		if col.Required {
			required = append(required, col.Name)
		}
	}
	return required
}

// ValidateFields checks a caller-supplied field set against the schema:
// no managed columns, no undeclared columns. When requireMandatory is set
// (create), every required column must be present and non-empty.
// Empty string and absent field are treated identically.
func (s *FormSchema) ValidateFields(fields map[string]string, requireMandatory bool) error {
	for name := range fields {
		if IsManagedColumn(name) {
			return errors.NewManagedColumn(name)
		}
		if _, ok := s.Column(name); !ok {
			return errors.NewUnknownColumn(name)
		}
	}
	if requireMandatory {
		for _, name := range s.Required() {
			if fields[name] == "" {
				col, _ := s.Column(name)
				label := col.Label
				if label == "" {
					label = name
				}
				return errors.NewValidationFailed(name, fmt.Sprintf("%s is required", label))
			}
		}
	}
	return nil
}

// ValidateFilters checks a filter set: only declared, filterable columns
// may be filtered on. Empty filter values are allowed; the data layer
// ignores them.
func (s *FormSchema) ValidateFilters(filters map[string]string) error {
	for name := range filters {
		col, ok := s.Column(name)
		if !ok || IsManagedColumn(name) {
			return errors.NewUnknownColumn(name)
		}
		if !col.Filterable {
			return errors.NewValidationFailed(name, "column is not filterable")
		}
	}
	return nil
}

// Default returns the schema the original deployment shipped with: a
// contact-style table where name and email are mandatory.
func Default() *FormSchema {
	return &FormSchema{
		Columns: []Column{
			{Name: "name", Label: "Name", Required: true, Filterable: true},
			{Name: "email", Label: "Email", Required: true, Filterable: true},
			{Name: "phone", Label: "Phone"},
			{Name: "department", Label: "Department"},
			{Name: "status", Label: "Status"},
			{Name: "notes", Label: "Notes"},
		},
	}
}

// LoadFile reads a form schema from a yaml file.
func LoadFile(path string) (*FormSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a yaml form schema.
func Parse(data []byte) (*FormSchema, error) {
	var s FormSchema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("schema: failed to parse yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
