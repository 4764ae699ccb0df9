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

// Package tabledef loads declared tables from YAML files.
//
// A file holds one or more YAML documents, each of the form
//
//	tables:
//	  - name: users
//	    primary_key: [id]
//	    columns:
//	      - name: id
//	        kind: int64
//	      - name: email
//	        type: VARCHAR
//	        length: 200
//	        index: true
package tabledef

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
)

type document struct {
	Tables []*schema.Table `yaml:"tables"`
}

// Load reads and validates the declared tables in path.
func Load(path string) ([]*schema.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table definitions: %w", err)
	}
	defer f.Close()

	tables, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tables, nil
}

// Parse decodes every document in r. Unknown keys are rejected, as are tables declared twice.
func Parse(r io.Reader) ([]*schema.Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var tables []*schema.Table
	seen := make(map[string]bool)
	for n := 1; ; n++ {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", n, err)
		}
		for _, t := range doc.Tables {
			if t == nil {
				continue
			}
			if err := t.Validate(); err != nil {
				return nil, err
			}
			key := strings.ToLower(t.QualifiedName())
			if seen[key] {
				return nil, &schema.ErrInvalidDefinition{Table: t.Name, Msg: "table declared more than once"}
			}
			seen[key] = true
			tables = append(tables, t)
		}
	}
	return tables, nil
}

// Filter keeps the tables whose name or qualified name is a key of names. An empty map keeps all.
func Filter(tables []*schema.Table, names map[string][]string) []*schema.Table {
	if len(names) == 0 {
		return tables
	}
	wanted := make(map[string]bool, len(names))
	for n := range names {
		wanted[strings.ToLower(n)] = true
	}
	var out []*schema.Table
	for _, t := range tables {
		if wanted[strings.ToLower(t.Name)] || wanted[strings.ToLower(t.QualifiedName())] {
			out = append(out, t)
		}
	}
	return out
}
