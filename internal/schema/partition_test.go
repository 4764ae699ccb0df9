package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionSQL(t *testing.T) {
	tests := []struct {
		name      string
		partition Partition
		want      string
	}{
		{
			name:      "hash",
			partition: Partition{Type: PartitionHash, Field: "id", Partitions: 4},
			want:      "PARTITION BY HASH(id)\n PARTITIONS 4",
		},
		{
			name:      "key_without_field",
			partition: Partition{Type: PartitionKey, Partitions: 8},
			want:      "PARTITION BY KEY()\n PARTITIONS 8",
		},
		{
			name: "list_with_default",
			partition: Partition{
				Type:             PartitionList,
				Field:            "status",
				Lists:            [][]any{{1, 2}, {"a'b"}},
				DefaultPartition: true,
			},
			want: "PARTITION BY LIST COLUMNS(status)\n(\n" +
				"PARTITION P0 VALUES IN (1,2),\n" +
				"PARTITION P1 VALUES IN ('a''b'),\n" +
				"PARTITION P_DEFAULT VALUES IN ( DEFAULT )\n)",
		},
		{
			name: "monthly_range",
			partition: Partition{
				Type:  PartitionRange,
				Field: "create_time",
				From:  "2024-01-01",
				To:    "2024-03-01",
				Unit:  UnitMonth,
			},
			want: "PARTITION BY RANGE COLUMNS(create_time) (\n" +
				"PARTITION P20231201 VALUES LESS THAN ('2024-01-01'),\n" +
				"PARTITION P20240101 VALUES LESS THAN ('2024-02-01'),\n" +
				"PARTITION P20240201 VALUES LESS THAN ('2024-03-01')\n)",
		},
		{
			name: "half_month_range",
			partition: Partition{
				Type:  PartitionRange,
				Field: "d",
				From:  "2024-01-01",
				To:    "2024-01-16",
				Unit:  UnitHalfMonth,
			},
			want: "PARTITION BY RANGE COLUMNS(d) (\n" +
				"PARTITION P20231216 VALUES LESS THAN ('2024-01-01'),\n" +
				"PARTITION P20240101 VALUES LESS THAN ('2024-01-16')\n)",
		},
		{
			name:      "expression_replaces_field",
			partition: Partition{Type: PartitionHash, Field: "created_at", Expr: "YEAR(created_at)", Partitions: 2},
			want:      "PARTITION BY HASH(YEAR(created_at))\n PARTITIONS 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.partition.Validate())
			assert.Equal(t, tt.want, tt.partition.SQL(true))
		})
	}
}

func TestPartitionWithSubPartition(t *testing.T) {
	p := Partition{
		Type:  PartitionRange,
		Field: "create_time",
		From:  "2024-01-01",
		To:    "2024-01-01",
		Unit:  UnitYear,
		Sub: &Partition{
			Type:  PartitionList,
			Field: "status",
			Lists: [][]any{{1}, {2}},
		},
	}
	require.NoError(t, p.Validate())

	sql := p.SQL(true)
	assert.Contains(t, sql, "SUBPARTITION BY LIST COLUMNS(status)\n SUBPARTITION TEMPLATE (\nSUBPARTITION SP0 VALUES IN (1),\nSUBPARTITION SP1 VALUES IN (2))")
	assert.Contains(t, sql, "PARTITION P20230101 VALUES LESS THAN ('2024-01-01')")
	assert.Equal(t, []string{"create_time", "status"}, p.Fields())
}

func TestPartitionValidate(t *testing.T) {
	tests := []struct {
		name      string
		partition Partition
		wantErr   string
	}{
		{"unknown_type", Partition{Type: "ring"}, "unknown partition type"},
		{"hash_without_count", Partition{Type: PartitionHash, Field: "id"}, "positive partition count"},
		{"list_without_values", Partition{Type: PartitionList, Field: "s"}, "at least one value list"},
		{"range_bad_date", Partition{Type: PartitionRange, Field: "d", From: "2024-13-01", To: "2024-12-01", Unit: UnitMonth}, "invalid range start"},
		{"range_bad_unit", Partition{Type: PartitionRange, Field: "d", From: "2024-01-01", To: "2024-12-01", Unit: "WEEK"}, "unknown date unit"},
		{
			"nested_too_deep",
			Partition{Type: PartitionHash, Field: "a", Partitions: 2, Sub: &Partition{Type: PartitionKey, Partitions: 2, Sub: &Partition{Type: PartitionKey, Partitions: 2}}},
			"one level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.partition.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAddMonthsClampsDay(t *testing.T) {
	p := Partition{Type: PartitionRange, Field: "d", From: "2024-01-31", To: "2024-03-31", Unit: UnitMonth}
	bounds, err := p.rangeBounds()
	require.NoError(t, err)
	require.Len(t, bounds, 3)
	assert.Equal(t, "2024-02-29", bounds[1].Format(dateLayout))
	assert.Equal(t, "2024-03-29", bounds[2].Format(dateLayout))
}
