package database

import (
	"testing"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/schema"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalType(t *testing.T) {
	tests := map[string]string{
		"int":                         "INTEGER",
		"INT4":                        "INTEGER",
		"int8":                        "BIGINT",
		"decimal":                     "NUMERIC",
		"NUMBER":                      "NUMERIC",
		"character varying":           "VARCHAR",
		"VARCHAR2":                    "VARCHAR",
		"bpchar":                      "CHAR",
		"timestamp without time zone": "TIMESTAMP",
		"TIMESTAMP(6)":                "TIMESTAMP",
		"vector(3)":                   "VECTOR",
		"bool":                        "BOOLEAN",
		"float8":                      "DOUBLE PRECISION",
		" text ":                      "TEXT",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalType(in), in)
	}
}

func TestCanonicalDefault(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"'active'::character varying", "active"},
		{"('x')", "x"},
		{"'it''s'", "it's"},
		{"0", "0"},
		{"((0))", "0"},
		{"NULL", ""},
		{"null", ""},
		{"nextval('seq')::regclass", "nextval('seq')"},
		{"CURRENT_TIMESTAMP", "CURRENT_TIMESTAMP"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalDefault(tt.in), tt.in)
	}
}

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		name string
		in   schema.Column
		want schema.Column
	}{
		{
			name: "numeric defaults scale",
			in:   schema.Column{Name: "amount", DataType: "number", Precision: schema.Int(10)},
			want: schema.Column{Name: "amount", DataType: "NUMERIC", Precision: schema.Int(10), Scale: schema.Int(0)},
		},
		{
			name: "integer drops precision",
			in:   schema.Column{Name: "id", DataType: "int4", Precision: schema.Int(32), Scale: schema.Int(0)},
			want: schema.Column{Name: "id", DataType: "INTEGER"},
		},
		{
			name: "varchar keeps length",
			in:   schema.Column{Name: "name", DataType: "character varying", Length: schema.Int(64)},
			want: schema.Column{Name: "name", DataType: "VARCHAR", Length: schema.Int(64)},
		},
		{
			name: "unbounded varchar becomes text",
			in:   schema.Column{Name: "body", DataType: "CHARACTER VARYING", Length: schema.Int(1000000000)},
			want: schema.Column{Name: "body", DataType: "TEXT"},
		},
		{
			name: "oversized char length dropped",
			in:   schema.Column{Name: "c", DataType: "VARCHAR", Length: schema.Int(70000)},
			want: schema.Column{Name: "c", DataType: "VARCHAR"},
		},
		{
			name: "non char length dropped",
			in:   schema.Column{Name: "ts", DataType: "timestamp(6)", Length: schema.Int(26)},
			want: schema.Column{Name: "ts", DataType: "TIMESTAMP"},
		},
		{
			name: "vector length parsed",
			in:   schema.Column{Name: "emb", DataType: "VECTOR(768)"},
			want: schema.Column{Name: "emb", DataType: "VECTOR", VectorLength: schema.Int(768)},
		},
		{
			name: "default cast stripped",
			in:   schema.Column{Name: "status", DataType: "text", DefaultValue: "'new'::text"},
			want: schema.Column{Name: "status", DataType: "TEXT", DefaultValue: "new"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColumn(tt.in))
		})
	}
}

func TestNormalizeColumnDoesNotMutateInput(t *testing.T) {
	in := schema.Column{Name: "n", DataType: "number", Precision: schema.Int(5)}
	_ = NormalizeColumn(in)
	assert.Equal(t, "number", in.DataType)
	assert.Nil(t, in.Scale)
}
