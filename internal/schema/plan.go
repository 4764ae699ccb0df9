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

// Statement is one DDL statement. Ignorable statements may fail without aborting a plan.
type Statement struct {
	text      string
	ignorable bool
}

// NewStatement returns a statement whose failure aborts the plan.
func NewStatement(text string) Statement {
	return Statement{text: text}
}

// IgnorableStatement returns a statement whose failure is logged and skipped.
func IgnorableStatement(text string) Statement {
	return Statement{text: text, ignorable: true}
}

func (s Statement) Text() string   { return s.text }
func (s Statement) Ignorable() bool { return s.ignorable }

// AsIgnorable returns a copy of s flagged ignorable.
func (s Statement) AsIgnorable() Statement {
	s.ignorable = true
	return s
}

func (s Statement) String() string {
	if s.ignorable {
		return s.text + " (ignorable)"
	}
	return s.text
}

// Plan is the ordered list of statements that brings one table in sync.
type Plan struct {
	Table      string
	statements []Statement
}

// NewPlan returns an empty plan for the named table.
func NewPlan(table string) *Plan {
	return &Plan{Table: table}
}

// Add appends statements, skipping empty ones.
func (p *Plan) Add(stmts ...Statement) {
	for _, s := range stmts {
		if s.text == "" {
			continue
		}
		p.statements = append(p.statements, s)
	}
}

// Statements returns a copy of the planned statements.
func (p *Plan) Statements() []Statement {
	return append([]Statement(nil), p.statements...)
}

// Texts returns the SQL text of every statement.
func (p *Plan) Texts() []string {
	out := make([]string, len(p.statements))
	for i, s := range p.statements {
		out[i] = s.text
	}
	return out
}

// Empty reports whether the table is already in sync.
func (p *Plan) Empty() bool {
	return p == nil || len(p.statements) == 0
}

func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.statements)
}
