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

// AlterStrategy controls what the reconciler does with a column that already exists.
type AlterStrategy string

const (
	AlterInPlace     AlterStrategy = "alter"
	DropAndRecreate  AlterStrategy = "drop_and_recreate"
	IgnoreColumn     AlterStrategy = "ignore"
	DropColumn       AlterStrategy = "drop"
	defaultAlterMode               = AlterInPlace
)

// IndexType is the kind of a single-column index.
type IndexType string

const (
	IndexNormal   IndexType = "normal"
	IndexUnique   IndexType = "unique"
	IndexFulltext IndexType = "fulltext"
	IndexVector   IndexType = "vector"
)

// Keyword returns the modifier placed between CREATE and INDEX, empty for a plain index.
func (t IndexType) Keyword() string {
	switch t {
	case IndexUnique:
		return "UNIQUE"
	case IndexFulltext:
		return "FULLTEXT"
	case IndexVector:
		return "VECTOR"
	default:
		return ""
	}
}

// Simple reports whether the index kind can be recreated with a plain CREATE [UNIQUE] INDEX.
func (t IndexType) Simple() bool {
	return t == "" || t == IndexNormal || t == IndexUnique
}

// ValueKind is the declared value type of a column before it is mapped to a native type.
type ValueKind string

const (
	KindInt8     ValueKind = "int8"
	KindInt16    ValueKind = "int16"
	KindInt32    ValueKind = "int32"
	KindInt64    ValueKind = "int64"
	KindBigInt   ValueKind = "bigint"
	KindFloat32  ValueKind = "float32"
	KindFloat64  ValueKind = "float64"
	KindDecimal  ValueKind = "decimal"
	KindString   ValueKind = "string"
	KindChar     ValueKind = "char"
	KindBool     ValueKind = "bool"
	KindDate     ValueKind = "date"
	KindDateTime ValueKind = "datetime"
	KindTime     ValueKind = "time"
	KindBytes    ValueKind = "bytes"
	KindEnum     ValueKind = "enum"
	KindJSON     ValueKind = "json"
	KindVector   ValueKind = "vector"
)

// Column describes one declared or live column.
//
// Length applies to character types only, Precision and Scale to numeric types.
// An empty Comment or DefaultValue on a declared column means the value is not managed.
type Column struct {
	Name          string        `yaml:"name"`
	DataType      string        `yaml:"type,omitempty"`
	Kind          ValueKind     `yaml:"kind,omitempty"`
	Length        *int          `yaml:"length,omitempty"`
	Precision     *int          `yaml:"precision,omitempty"`
	Scale         *int          `yaml:"scale,omitempty"`
	VectorLength  *int          `yaml:"vector_length,omitempty"`
	NotNull       *bool         `yaml:"not_null,omitempty"`
	DefaultValue  string        `yaml:"default,omitempty"`
	Comment       string        `yaml:"comment,omitempty"`
	AutoIncrement bool          `yaml:"-"`
	Generated     bool          `yaml:"-"`
	Index         bool          `yaml:"index,omitempty"`
	IndexName     string        `yaml:"index_name,omitempty"`
	IndexType     IndexType     `yaml:"index_type,omitempty"`
	IndexExpr     string        `yaml:"index_expr,omitempty"`
	OldNames      []string      `yaml:"old_names,omitempty"`
	Strategy      AlterStrategy `yaml:"strategy,omitempty"`
	AdditionalDDL string        `yaml:"additional_ddl,omitempty"`
}

// AlterStrategy returns the column strategy, defaulting to an in-place alter.
func (c *Column) AlterStrategy() AlterStrategy {
	if c.Strategy == "" {
		return defaultAlterMode
	}
	return c.Strategy
}

// EffectiveIndexType returns the index kind, defaulting to a normal index.
func (c *Column) EffectiveIndexType() IndexType {
	if c.IndexType == "" {
		return IndexNormal
	}
	return c.IndexType
}

// IsNotNull reports whether the column is declared or found to be NOT NULL.
func (c *Column) IsNotNull() bool {
	return c.NotNull != nil && *c.NotNull
}

// TypeDefinition renders the native type with its length, precision/scale or vector length.
func (c *Column) TypeDefinition() string {
	switch {
	case c.Length != nil:
		return fmt.Sprintf("%s(%d)", c.DataType, *c.Length)
	case c.Precision != nil && c.Scale != nil:
		return fmt.Sprintf("%s(%d,%d)", c.DataType, *c.Precision, *c.Scale)
	case c.Precision != nil:
		return fmt.Sprintf("%s(%d)", c.DataType, *c.Precision)
	case c.VectorLength != nil:
		return fmt.Sprintf("%s(%d)", c.DataType, *c.VectorLength)
	default:
		return c.DataType
	}
}

// HasName reports whether name matches the column name, ignoring case.
func (c *Column) HasName(name string) bool {
	return strings.EqualFold(c.Name, name)
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	c.Length = cloneInt(c.Length)
	c.Precision = cloneInt(c.Precision)
	c.Scale = cloneInt(c.Scale)
	c.VectorLength = cloneInt(c.VectorLength)
	if c.NotNull != nil {
		v := *c.NotNull
		c.NotNull = &v
	}
	if c.OldNames != nil {
		c.OldNames = append([]string(nil), c.OldNames...)
	}
	return c
}

// Index is a live index read back from the catalog.
type Index struct {
	Name    string
	Columns []string
	Type    IndexType
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
