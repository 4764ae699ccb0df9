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
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

const (
	maxIndexNameLength = 64
	indexNameKeep      = 60
)

// Prepare validates declared and returns a copy ready for diffing: default schema applied,
// native types filled from value kinds and index names resolved.
func (s *Service) Prepare(declared *schema.Table) (*schema.Table, error) {
	if err := declared.Validate(); err != nil {
		return nil, err
	}
	t := declared.Clone()
	if t.Schema == "" {
		t.Schema = s.defaultSchema
	}
	if s.disableAlterComment {
		t.DisableAlterComment = true
	}
	for i := range t.Columns {
		c := &t.Columns[i]
		if err := s.types.Apply(c, s.dialect); err != nil {
			return nil, &schema.ErrInvalidDefinition{Table: t.Name, Msg: "cannot map column type", Err: err}
		}
		if c.Index && c.IndexName == "" {
			c.IndexName = s.IndexName(t, c)
		}
	}
	return t, nil
}

// IndexName returns the generated name of the index on c. Names longer than 64 characters are
// cut to 60 and suffixed with four hex digits of their hash.
func (s *Service) IndexName(t *schema.Table, c *schema.Column) string {
	column := s.dialect.UnquoteIdentifier(c.Name)
	name := s.indexPrefix + column
	if !s.dialect.TableScopedIndexNames() {
		name = s.indexPrefix + s.dialect.UnquoteIdentifier(t.Name) + "_" + column
	}
	name = strings.ToLower(name)
	if len(name) > maxIndexNameLength {
		name = fmt.Sprintf("%s%04x", name[:indexNameKeep], xxh3.HashString(name)&0xffff)
	}
	return name
}
