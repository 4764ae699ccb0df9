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

// Package typemap maps declared value kinds to native column types through an ordered rule chain.
package typemap

import (
	"fmt"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

const (
	defaultStringLength = 100
	jsonLength          = 65535
	enumLength          = 50

	inlineVarcharLimit   = 2000
	sqlServerNVarchar    = 4000
	mysqlTextLimit       = 65535
	mysqlMediumTextLimit = 16777215
)

// Input is what a rule sees of a declared column.
type Input struct {
	Kind         schema.ValueKind
	Length       *int
	VectorLength *int
	Dialect      database.Dialect
}

func (in Input) family() database.Family { return in.Dialect.Family() }

// Target is a native type with its length, precision and scale.
type Target struct {
	DataType     string
	Length       *int
	Precision    *int
	Scale        *int
	VectorLength *int
}

// Rule maps one family of value kinds. It reports false when the kind is not its own.
type Rule func(in Input) (Target, bool)

// Normalizer applies rules in order. The first rule that claims a kind wins.
type Normalizer struct {
	rules               []Rule
	defaultVectorLength int
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDefaultVectorLength sets the vector length used when a vector column declares none.
func WithDefaultVectorLength(n int) Option {
	return func(nm *Normalizer) {
		if n > 0 {
			nm.defaultVectorLength = n
		}
	}
}

// WithRules puts extra rules ahead of the built-in chain.
func WithRules(rules ...Rule) Option {
	return func(nm *Normalizer) {
		nm.rules = append(append([]Rule(nil), rules...), nm.rules...)
	}
}

// New returns a Normalizer with the built-in rule chain.
func New(opts ...Option) *Normalizer {
	nm := &Normalizer{defaultVectorLength: 1024}
	nm.rules = []Rule{
		integerRule,
		decimalRule,
		boolRule,
		stringRule,
		temporalRule,
		bytesRule,
		nm.vectorRule,
	}
	for _, opt := range opts {
		opt(nm)
	}
	return nm
}

// Map returns the native type for a declared kind in dialect d.
func (nm *Normalizer) Map(in Input) (Target, error) {
	for _, rule := range nm.rules {
		if t, ok := rule(in); ok {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("no native type for value kind %q in dialect %s", in.Kind, in.Dialect.Name())
}

// Apply fills the native type of c from its Kind. Columns that already declare a type are left
// as they are.
func (nm *Normalizer) Apply(c *schema.Column, d database.Dialect) error {
	if c.DataType != "" {
		return nil
	}
	if c.Kind == "" {
		return fmt.Errorf("column %s declares neither a type nor a kind", c.Name)
	}
	t, err := nm.Map(Input{Kind: c.Kind, Length: c.Length, VectorLength: c.VectorLength, Dialect: d})
	if err != nil {
		return fmt.Errorf("column %s: %w", c.Name, err)
	}
	c.DataType = t.DataType
	c.Length = t.Length
	c.Precision = t.Precision
	c.Scale = t.Scale
	c.VectorLength = t.VectorLength
	return nil
}

func numeric(precision int, scale ...int) Target {
	t := Target{DataType: "NUMERIC", Precision: schema.Int(precision)}
	if len(scale) > 0 {
		t.Scale = schema.Int(scale[0])
	}
	return t
}

func integerRule(in Input) (Target, bool) {
	oracle := in.family() == database.FamilyOracle
	switch in.Kind {
	case schema.KindInt32:
		if oracle {
			return numeric(9, 0), true
		}
		return Target{DataType: "INTEGER"}, true
	case schema.KindInt64:
		if oracle {
			return numeric(19, 0), true
		}
		return Target{DataType: "BIGINT"}, true
	case schema.KindInt16:
		return numeric(5, 0), true
	case schema.KindInt8:
		return numeric(3, 0), true
	case schema.KindBigInt:
		return numeric(30), true
	}
	return Target{}, false
}

func decimalRule(in Input) (Target, bool) {
	switch in.Kind {
	case schema.KindFloat32:
		return numeric(8, 2), true
	case schema.KindFloat64:
		return numeric(16, 4), true
	case schema.KindDecimal:
		return numeric(20, 10), true
	}
	return Target{}, false
}

func boolRule(in Input) (Target, bool) {
	if in.Kind != schema.KindBool {
		return Target{}, false
	}
	switch in.family() {
	case database.FamilyMySQL:
		return Target{DataType: "TINYINT"}, true
	case database.FamilyOracle:
		return numeric(1, 0), true
	case database.FamilySQLServer:
		return Target{DataType: "BIT"}, true
	}
	return Target{DataType: "BOOLEAN"}, true
}

func stringRule(in Input) (Target, bool) {
	switch in.Kind {
	case schema.KindString:
		n := defaultStringLength
		if in.Length != nil {
			n = *in.Length
		}
		return text(in.family(), n), true
	case schema.KindJSON:
		return text(in.family(), jsonLength), true
	case schema.KindEnum:
		return text(in.family(), enumLength), true
	case schema.KindChar:
		return Target{DataType: "CHAR", Length: schema.Int(1)}, true
	}
	return Target{}, false
}

// text picks the character type for n characters. n <= 0 means unbounded.
func text(family database.Family, n int) Target {
	varchar := func(typ string) Target { return Target{DataType: typ, Length: schema.Int(n)} }
	switch family {
	case database.FamilyMySQL:
		switch {
		case n <= 0 || n > mysqlMediumTextLimit:
			return Target{DataType: "LONGTEXT"}
		case n > mysqlTextLimit:
			return Target{DataType: "MEDIUMTEXT"}
		case n > inlineVarcharLimit:
			return Target{DataType: "TEXT"}
		}
		return varchar("VARCHAR")
	case database.FamilySQLServer:
		if n <= 0 || n > sqlServerNVarchar {
			return Target{DataType: "NVARCHAR(MAX)"}
		}
		return varchar("NVARCHAR")
	case database.FamilyOracle, database.FamilyH2:
		if n <= 0 || n > inlineVarcharLimit {
			return Target{DataType: "CLOB"}
		}
		return varchar("VARCHAR")
	}
	if n <= 0 || n > inlineVarcharLimit {
		return Target{DataType: "TEXT"}
	}
	return varchar("VARCHAR")
}

func temporalRule(in Input) (Target, bool) {
	switch in.Kind {
	case schema.KindDate:
		return Target{DataType: "DATE"}, true
	case schema.KindTime:
		return Target{DataType: "TIME"}, true
	case schema.KindDateTime:
		switch in.family() {
		case database.FamilyMySQL:
			return Target{DataType: "DATETIME"}, true
		case database.FamilySQLServer:
			return Target{DataType: "DATETIME2"}, true
		}
		return Target{DataType: "TIMESTAMP"}, true
	}
	return Target{}, false
}

func bytesRule(in Input) (Target, bool) {
	if in.Kind != schema.KindBytes {
		return Target{}, false
	}
	return binary(in.family(), "LONGBLOB"), true
}

func binary(family database.Family, fallback string) Target {
	switch family {
	case database.FamilyOracle, database.FamilyH2:
		return Target{DataType: "BLOB"}
	case database.FamilyPostgres:
		return Target{DataType: "BYTEA"}
	case database.FamilySQLServer:
		return Target{DataType: "VARBINARY(MAX)"}
	}
	return Target{DataType: fallback}
}

// vectorRule uses the native VECTOR type where the server has one and a binary column elsewhere.
func (nm *Normalizer) vectorRule(in Input) (Target, bool) {
	if in.Kind != schema.KindVector {
		return Target{}, false
	}
	if in.Dialect.Name() == "oceanbase" {
		n := nm.defaultVectorLength
		if in.VectorLength != nil && *in.VectorLength > 0 {
			n = *in.VectorLength
		}
		return Target{DataType: "VECTOR", VectorLength: schema.Int(n)}, true
	}
	return binary(in.family(), "BLOB"), true
}
