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

import "fmt"

// ErrInvalidDefinition is a configuration error in a declared table.
type ErrInvalidDefinition struct {
	Table string
	Msg   string
	Err   error
}

func (e *ErrInvalidDefinition) Error() string {
	prefix := "invalid table definition"
	if e.Table != "" {
		prefix = fmt.Sprintf("invalid table definition %q", e.Table)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

func (e *ErrInvalidDefinition) Unwrap() error {
	return e.Err
}

func (e *ErrInvalidDefinition) withTable(table string) *ErrInvalidDefinition {
	e.Table = table
	return e
}
