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
package reconciler

import (
	"strings"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

// userDefinedType is what PostgreSQL reports for extension types such as vector.
const userDefinedType = "USER-DEFINED"

// planColumns walks the declared columns in order and plans the statements for each. Live
// columns that no declared column claims are reported and left alone.
func (s *Service) planColumns(t *schema.Table, live []schema.Column, plan *schema.Plan, log *zap.Logger) {
	seen := make(map[string]bool, len(live))

	for i := range t.Columns {
		c := &t.Columns[i]
		old := matchLive(c, live)
		if old == nil {
			if c.AlterStrategy() != schema.DropColumn {
				plan.Add(s.dialect.AddColumnSQL(t, c)...)
				s.planIndex(t, c, plan)
			}
			continue
		}
		seen[strings.ToLower(old.Name)] = true

		switch c.AlterStrategy() {
		case schema.DropColumn:
			// A column found under an old name is not dropped.
			if strings.EqualFold(old.Name, c.Name) {
				plan.Add(s.dialect.DropColumnSQL(t, old))
			}
		case schema.DropAndRecreate:
			if columnChanged(c, old) {
				plan.Add(s.dialect.DropColumnSQL(t, old))
				plan.Add(s.dialect.AddColumnSQL(t, c)...)
				s.planIndex(t, c, plan)
			} else if commentChanged(t, c, old) {
				plan.Add(s.dialect.ColumnCommentSQL(t, c))
			}
		case schema.IgnoreColumn:
		default:
			s.planAlter(t, c, old, plan, log)
		}
	}

	for _, c := range live {
		if !seen[strings.ToLower(c.Name)] {
			log.Warn("undefined column '" + t.Name + "." + c.Name + "'")
		}
	}
}

// matchLive finds the live column for c by its name, then by each of its old names in order.
func matchLive(c *schema.Column, live []schema.Column) *schema.Column {
	if old := findColumn(live, c.Name); old != nil {
		return old
	}
	for _, name := range c.OldNames {
		if old := findColumn(live, name); old != nil {
			return old
		}
	}
	return nil
}

func findColumn(cols []schema.Column, name string) *schema.Column {
	for i := range cols {
		if cols[i].HasName(name) {
			return &cols[i]
		}
	}
	return nil
}

// planAlter plans an in-place change of one column: the definition, then the comment when the
// dialect keeps it apart, then the index.
func (s *Service) planAlter(t *schema.Table, c, old *schema.Column, plan *schema.Plan, log *zap.Logger) {
	changed := columnChanged(c, old)
	commented := false
	if t.DisableAlterComment {
		keep := c.Clone()
		keep.Comment = old.Comment
		c = &keep
	} else {
		commented = commentChanged(t, c, old)
	}

	if changed || (commented && s.dialect.AlterColumnIncludesComment()) {
		plan.Add(s.dialect.AlterColumnSQL(t, c, old)...)
	}
	if commented && !s.dialect.AlterColumnIncludesComment() {
		plan.Add(s.dialect.ColumnCommentSQL(t, c))
	}

	if !indexChanged(c, old) {
		return
	}
	switch {
	case old.Index && !c.Index:
		plan.Add(s.dialect.DropIndexSQL(t, old.IndexName))
	case !old.Index && c.Index:
		s.planIndex(t, c, plan)
	case c.EffectiveIndexType().Simple() && old.EffectiveIndexType().Simple() &&
		c.EffectiveIndexType() != old.EffectiveIndexType():
		plan.Add(s.dialect.DropIndexSQL(t, old.IndexName))
		s.planIndex(t, c, plan)
	default:
		log.Warn("unsupported index change",
			zap.String("column", c.Name),
			zap.String("from", string(old.EffectiveIndexType())+" "+old.IndexName),
			zap.String("to", string(c.EffectiveIndexType())+" "+c.IndexName))
	}
}

// columnChanged compares a declared column with its normalised live counterpart. Optional
// declared attributes that are unset do not count as a change.
func columnChanged(c, old *schema.Column) bool {
	return !(strings.EqualFold(c.Name, old.Name) &&
		sameType(c, old) &&
		equalInt(c.Length, old.Length) &&
		(c.Precision == nil || equalInt(c.Precision, old.Precision)) &&
		valueOrZero(c.Scale) == valueOrZero(old.Scale) &&
		(c.VectorLength == nil || old.VectorLength == nil || *c.VectorLength == *old.VectorLength) &&
		(c.NotNull == nil || c.IsNotNull() == old.IsNotNull()) &&
		database.CanonicalDefault(c.DefaultValue) == database.CanonicalDefault(old.DefaultValue))
}

func sameType(c, old *schema.Column) bool {
	declared := database.CanonicalType(c.DataType)
	live := database.CanonicalType(old.DataType)
	return declared == live ||
		(database.IsIntegerType(declared) && database.IsIntegerType(live)) ||
		strings.EqualFold(old.DataType, userDefinedType)
}

// indexChanged compares index presence, name and kind once either side has an index. Live
// indexes never carry an expression, so a declared expression is not compared.
func indexChanged(c, old *schema.Column) bool {
	if !c.Index && !old.Index {
		return false
	}
	return c.Index != old.Index ||
		!strings.EqualFold(c.IndexName, old.IndexName) ||
		c.EffectiveIndexType() != old.EffectiveIndexType()
}

func commentChanged(t *schema.Table, c, old *schema.Column) bool {
	if t.DisableAlterComment || c.Comment == "" {
		return false
	}
	return !database.SameComment(c.Comment, old.Comment)
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func valueOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
