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
package database

import (
	"fmt"
	"sort"
	"strings"
)

// Registry resolves dialect handlers by configured name or reported product name.
// Handlers are consulted in ascending priority, ties in registration order.
type Registry struct {
	handlers []DialectHandler
}

// NewRegistry returns a registry over the given handlers.
func NewRegistry(handlers ...DialectHandler) *Registry {
	sorted := append([]DialectHandler(nil), handlers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &Registry{handlers: sorted}
}

// Handlers returns the handlers in lookup order.
func (r *Registry) Handlers() []DialectHandler {
	return append([]DialectHandler(nil), r.handlers...)
}

// Names returns the handler names in lookup order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.handlers))
	for i, h := range r.handlers {
		names[i] = h.Name()
	}
	return names
}

// Lookup returns the handler for a configured dialect name. A "cloudsql" prefix is ignored.
// An exact name match wins over a looser Matches match.
func (r *Registry) Lookup(dialect string) (DialectHandler, error) {
	name := strings.ToLower(strings.TrimSpace(dialect))
	name = strings.TrimPrefix(name, cloudSQLPrefix)
	if name == "" {
		return nil, fmt.Errorf("no database dialect configured")
	}
	for _, h := range r.handlers {
		if strings.EqualFold(h.Name(), name) {
			return h, nil
		}
	}
	if h := r.match(name); h != nil {
		return h, nil
	}
	return nil, fmt.Errorf("unsupported database dialect: %s (supported: %s)", dialect, strings.Join(r.Names(), ", "))
}

// ForProduct returns the first handler, by priority, that claims the product name.
func (r *Registry) ForProduct(productName string) (DialectHandler, error) {
	if h := r.match(productName); h != nil {
		return h, nil
	}
	return nil, fmt.Errorf("no dialect matches database product %q", productName)
}

func (r *Registry) match(name string) DialectHandler {
	for _, h := range r.handlers {
		if h.Matches(name) {
			return h
		}
	}
	return nil
}

// ContainsAny reports whether name contains any of the keywords, ignoring case.
// Handlers use it to implement Matches.
func ContainsAny(name string, keywords ...string) bool {
	lower := strings.ToLower(name)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
