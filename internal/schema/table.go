/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package schema

import (
	"fmt"
	"strings"
)

// KeyGeneratorMode describes how primary key values are produced.
type KeyGeneratorMode string

const (
	KeyNone          KeyGeneratorMode = "none"
	KeyAutoIncrement KeyGeneratorMode = "auto_increment"
	KeySequence      KeyGeneratorMode = "sequence"
	KeyExternal      KeyGeneratorMode = "external"
)

// Table is the desired (declared) or current (live) description of a table.
type Table struct {
	Name                string           `yaml:"name"`
	Schema              string           `yaml:"schema,omitempty"`
	Comment             string           `yaml:"comment,omitempty"`
	Columns             []Column         `yaml:"columns"`
	PrimaryKey          []string         `yaml:"primary_key,omitempty"`
	OldNames            []string         `yaml:"old_names,omitempty"`
	Partition           *Partition       `yaml:"partition,omitempty"`
	KeyGenerator        KeyGeneratorMode `yaml:"key_generator,omitempty"`
	KeyColumn           string           `yaml:"key_column,omitempty"`
	KeySequence         string           `yaml:"key_sequence,omitempty"`
	DisableAlterComment bool             `yaml:"disable_alter_comment,omitempty"`
	DisableAlterTable   bool             `yaml:"disable_alter_table,omitempty"`
	TableGroup          string           `yaml:"table_group,omitempty"`
	ColumnStore         bool             `yaml:"column_store,omitempty"`
}

// QualifiedName returns schema.name, or name when no schema is set.
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// FindColumn returns the column named name, ignoring case.
func (t *Table) FindColumn(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].HasName(name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsPrimaryKey reports whether name is one of the primary key columns.
func (t *Table) IsPrimaryKey(name string) bool {
	for _, pk := range t.PrimaryKey {
		if strings.EqualFold(strings.TrimSpace(pk), name) {
			return true
		}
	}
	return false
}

// ResolvedPrimaryKey returns the primary key columns when every one of them is declared.
// It returns nil when the key is empty or any name does not resolve.
func (t *Table) ResolvedPrimaryKey() []string {
	if len(t.PrimaryKey) == 0 {
		return nil
	}
	names := make([]string, 0, len(t.PrimaryKey))
	for _, pk := range t.PrimaryKey {
		pk = strings.TrimSpace(pk)
		if t.FindColumn(pk) == nil {
			return nil
		}
		names = append(names, pk)
	}
	return names
}

// IsAutoIncrementColumn reports whether c receives the dialect's auto-increment clause.
func (t *Table) IsAutoIncrementColumn(c *Column) bool {
	if t.KeyGenerator != KeyAutoIncrement {
		return false
	}
	key := t.KeyColumn
	if key == "" && len(t.PrimaryKey) == 1 {
		key = t.PrimaryKey[0]
	}
	return key != "" && c.HasName(key)
}

// ActiveColumns returns the columns not marked for dropping.
func (t *Table) ActiveColumns() []Column {
	cols := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.AlterStrategy() != DropColumn {
			cols = append(cols, c)
		}
	}
	return cols
}

// WithName returns a shallow copy of the table carrying another name.
func (t *Table) WithName(name string) *Table {
	c := *t
	c.Name = name
	return &c
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := *t
	c.Columns = make([]Column, len(t.Columns))
	for i, col := range t.Columns {
		c.Columns[i] = col.Clone()
	}
	c.PrimaryKey = append([]string(nil), t.PrimaryKey...)
	c.OldNames = append([]string(nil), t.OldNames...)
	if t.Partition != nil {
		c.Partition = t.Partition.Clone()
	}
	return &c
}

const illegalNameChars = "`'\";,()[]\\ \t\r\n"

// Validate checks the declared table for configuration errors before any database access.
func (t *Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return &ErrInvalidDefinition{Msg: "table name is empty"}
	}
	if err := checkName("table", t.Name); err != nil {
		return err
	}
	if t.Schema != "" {
		if err := checkName("schema", t.Schema); err != nil {
			return err
		}
	}
	for _, old := range t.OldNames {
		if err := checkName("old table", old); err != nil {
			return err
		}
	}
	if len(t.Columns) == 0 {
		return &ErrInvalidDefinition{Table: t.Name, Msg: "no columns declared"}
	}

	seen := make(map[string]bool, len(t.Columns))
	for i := range t.Columns {
		c := &t.Columns[i]
		if strings.TrimSpace(c.Name) == "" {
			return &ErrInvalidDefinition{Table: t.Name, Msg: fmt.Sprintf("column #%d has no name", i+1)}
		}
		if err := checkName("column", c.Name); err != nil {
			return err.withTable(t.Name)
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return &ErrInvalidDefinition{Table: t.Name, Msg: fmt.Sprintf("duplicate column %q", c.Name)}
		}
		seen[key] = true
		if c.DataType == "" && c.Kind == "" {
			return &ErrInvalidDefinition{Table: t.Name, Msg: fmt.Sprintf("column %q has neither a type nor a kind", c.Name)}
		}
		switch c.AlterStrategy() {
		case AlterInPlace, DropAndRecreate, IgnoreColumn, DropColumn:
		default:
			return &ErrInvalidDefinition{Table: t.Name, Msg: fmt.Sprintf("column %q has unknown strategy %q", c.Name, c.Strategy)}
		}
		if c.Length != nil && (c.Precision != nil || c.Scale != nil) {
			return &ErrInvalidDefinition{Table: t.Name, Msg: fmt.Sprintf("column %q sets both a length and a precision/scale", c.Name)}
		}
	}

	for _, pk := range t.PrimaryKey {
		if t.FindColumn(strings.TrimSpace(pk)) == nil {
			return &ErrInvalidDefinition{Table: t.Name, Msg: fmt.Sprintf("primary key column %q is not declared", pk)}
		}
	}
	if t.Partition != nil {
		if err := t.Partition.Validate(); err != nil {
			return &ErrInvalidDefinition{Table: t.Name, Msg: "invalid partition", Err: err}
		}
	}
	return nil
}

func checkName(what, name string) *ErrInvalidDefinition {
	if strings.ContainsAny(name, illegalNameChars) {
		return &ErrInvalidDefinition{Msg: fmt.Sprintf("%s name %q contains illegal characters", what, name)}
	}
	return nil
}
