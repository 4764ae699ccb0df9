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
	"time"
)

// PartitionType selects the partitioning scheme.
type PartitionType string

const (
	PartitionHash  PartitionType = "hash"
	PartitionKey   PartitionType = "key"
	PartitionList  PartitionType = "list"
	PartitionRange PartitionType = "range"
)

// DateUnit is the step between two range partitions.
type DateUnit string

const (
	UnitYear      DateUnit = "YEAR"
	UnitMonth     DateUnit = "MONTH"
	UnitDay       DateUnit = "DAY"
	UnitQuarter   DateUnit = "QUARTER"
	UnitHalfYear  DateUnit = "HALF_YEAR"
	UnitHalfMonth DateUnit = "HALF_MONTH"
)

const dateLayout = "2006-01-02"

// Partition is a MySQL-family partition clause with at most one sub-partition level.
type Partition struct {
	Type PartitionType `yaml:"type"`
	// Field is the partition column. Key partitions may leave it empty to use the primary key.
	Field string `yaml:"field,omitempty"`
	// Expr replaces Field inside the clause, e.g. YEAR(created_at).
	Expr string `yaml:"expr,omitempty"`

	// Partitions is the partition count for hash and key partitioning.
	Partitions int `yaml:"partitions,omitempty"`

	// Lists holds the value sets of a list partition; numbers are emitted unquoted.
	Lists            [][]any `yaml:"lists,omitempty"`
	DefaultPartition bool    `yaml:"default_partition,omitempty"`

	// From, To and Unit generate date range partitions.
	From string   `yaml:"from,omitempty"`
	To   string   `yaml:"to,omitempty"`
	Unit DateUnit `yaml:"unit,omitempty"`

	Sub *Partition `yaml:"sub,omitempty"`
}

// Fields returns the partition columns including those of the sub-partition.
func (p *Partition) Fields() []string {
	var fields []string
	if p.Field != "" {
		fields = append(fields, p.Field)
	}
	if p.Sub != nil {
		for _, f := range p.Sub.Fields() {
			if !containsFold(fields, f) {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// Validate checks that the partition can be rendered.
func (p *Partition) Validate() error {
	switch p.Type {
	case PartitionHash:
		if p.Field == "" {
			return fmt.Errorf("hash partition requires a field")
		}
		if p.Partitions <= 0 {
			return fmt.Errorf("hash partition requires a positive partition count")
		}
	case PartitionKey:
		if p.Partitions <= 0 {
			return fmt.Errorf("key partition requires a positive partition count")
		}
	case PartitionList:
		if p.Field == "" || len(p.Lists) == 0 {
			return fmt.Errorf("list partition requires a field and at least one value list")
		}
	case PartitionRange:
		if p.Field == "" {
			return fmt.Errorf("range partition requires a field")
		}
		if _, err := p.rangeBounds(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown partition type %q", p.Type)
	}
	if p.Sub != nil {
		if p.Sub.Sub != nil {
			return fmt.Errorf("only one level of sub-partitioning is supported")
		}
		return p.Sub.Validate()
	}
	return nil
}

// SQL renders the clause. main is false when rendering a sub-partition.
func (p *Partition) SQL(main bool) string {
	prefix := ""
	if !main {
		prefix = "SUB"
	}
	sub := ""
	if main && p.Sub != nil {
		sub = p.Sub.SQL(false)
	}

	var b strings.Builder
	switch p.Type {
	case PartitionHash, PartitionKey:
		field := p.fieldSQL()
		kind := "HASH"
		if p.Type == PartitionKey {
			kind = "KEY"
		}
		fmt.Fprintf(&b, "%sPARTITION BY %s(%s)\n", prefix, kind, field)
		b.WriteString(sub)
		fmt.Fprintf(&b, " %sPARTITIONS %d", prefix, p.Partitions)
	case PartitionList:
		fmt.Fprintf(&b, "%sPARTITION BY LIST COLUMNS(%s)\n", prefix, p.fieldSQL())
		b.WriteString(sub)
		if !main {
			b.WriteString(" SUBPARTITION TEMPLATE ")
		}
		names := partitionNamePrefix(main)
		parts := make([]string, len(p.Lists))
		for i, values := range p.Lists {
			parts[i] = fmt.Sprintf("%sPARTITION %s%d VALUES IN (%s)", prefix, names, i, joinValues(values))
		}
		b.WriteString("(\n")
		b.WriteString(strings.Join(parts, ",\n"))
		if p.DefaultPartition {
			fmt.Fprintf(&b, ",\n%sPARTITION %s_DEFAULT VALUES IN ( DEFAULT )\n", prefix, names)
		}
		b.WriteString(")")
	case PartitionRange:
		fmt.Fprintf(&b, "%sPARTITION BY RANGE COLUMNS(%s) ", prefix, p.fieldSQL())
		b.WriteString(sub)
		if !main {
			b.WriteString(" SUBPARTITION TEMPLATE ")
		}
		bounds, _ := p.rangeBounds()
		names := partitionNamePrefix(main)
		parts := make([]string, len(bounds))
		for i, bound := range bounds {
			name := names + p.Unit.prev(bound).Format("20060102")
			parts[i] = fmt.Sprintf("%sPARTITION %s VALUES LESS THAN ('%s')", prefix, name, bound.Format(dateLayout))
		}
		b.WriteString("(\n")
		b.WriteString(strings.Join(parts, ",\n"))
		b.WriteString("\n)")
	}
	return b.String()
}

// Clone returns a deep copy.
func (p *Partition) Clone() *Partition {
	c := *p
	if p.Lists != nil {
		c.Lists = make([][]any, len(p.Lists))
		for i, l := range p.Lists {
			c.Lists[i] = append([]any(nil), l...)
		}
	}
	if p.Sub != nil {
		c.Sub = p.Sub.Clone()
	}
	return &c
}

func (p *Partition) fieldSQL() string {
	if p.Expr != "" {
		return p.Expr
	}
	return p.Field
}

// rangeBounds returns every LESS THAN bound from From up to and including To.
func (p *Partition) rangeBounds() ([]time.Time, error) {
	from, err := time.Parse(dateLayout, p.From)
	if err != nil {
		return nil, fmt.Errorf("invalid range start %q: %w", p.From, err)
	}
	to, err := time.Parse(dateLayout, p.To)
	if err != nil {
		return nil, fmt.Errorf("invalid range end %q: %w", p.To, err)
	}
	if !p.Unit.valid() {
		return nil, fmt.Errorf("unknown date unit %q", p.Unit)
	}
	var bounds []time.Time
	for cur := from; !cur.After(to); cur = p.Unit.next(cur) {
		bounds = append(bounds, cur)
	}
	return bounds, nil
}

func (u DateUnit) valid() bool {
	switch u {
	case UnitYear, UnitMonth, UnitDay, UnitQuarter, UnitHalfYear, UnitHalfMonth:
		return true
	}
	return false
}

func (u DateUnit) next(d time.Time) time.Time {
	switch u {
	case UnitYear:
		return addMonths(d, 12)
	case UnitMonth:
		return addMonths(d, 1)
	case UnitDay:
		return d.AddDate(0, 0, 1)
	case UnitQuarter:
		return addMonths(d, 3)
	case UnitHalfYear:
		return addMonths(d, 6)
	case UnitHalfMonth:
		if d.Day() > 1 {
			return firstOfMonth(addMonths(d, 1))
		}
		return withDay(d, 16)
	}
	return d
}

func (u DateUnit) prev(d time.Time) time.Time {
	switch u {
	case UnitYear:
		return addMonths(d, -12)
	case UnitMonth:
		return addMonths(d, -1)
	case UnitDay:
		return d.AddDate(0, 0, -1)
	case UnitQuarter:
		return addMonths(d, -3)
	case UnitHalfYear:
		return addMonths(d, -6)
	case UnitHalfMonth:
		if d.Day() > 1 {
			return firstOfMonth(d)
		}
		return withDay(addMonths(d, -1), 16)
	}
	return d
}

// addMonths moves by whole months, clamping the day to the end of the target month.
func addMonths(d time.Time, months int) time.Time {
	first := time.Date(d.Year(), d.Month()+time.Month(months), 1, 0, 0, 0, 0, d.Location())
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return withDay(first, day)
}

func firstOfMonth(d time.Time) time.Time { return withDay(d, 1) }

func withDay(d time.Time, day int) time.Time {
	return time.Date(d.Year(), d.Month(), day, 0, 0, 0, 0, d.Location())
}

func partitionNamePrefix(main bool) string {
	if main {
		return "P"
	}
	return "SP"
}

func joinValues(values []any) string {
	out := make([]string, len(values))
	for i, v := range values {
		switch n := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			out[i] = fmt.Sprint(n)
		default:
			out[i] = "'" + strings.ReplaceAll(fmt.Sprint(n), "'", "''") + "'"
		}
	}
	return strings.Join(out, ",")
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
