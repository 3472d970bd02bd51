package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gridexport/pkg/contracts/domain"
)

func TestFormatAggregate(t *testing.T) {
	tests := []struct {
		name     string
		kind     domain.AggregateKind
		result   domain.AggregateResult
		expected string
	}{
		{
			name:     "sum integer",
			kind:     domain.AggregateSum,
			result:   domain.AggregateResult{Sum: 30},
			expected: "Sum: 30",
		},
		{
			name:     "sum with grouping",
			kind:     domain.AggregateSum,
			result:   domain.AggregateResult{Sum: 1234567},
			expected: "Sum: 1,234,567",
		},
		{
			name:     "sum with fraction",
			kind:     domain.AggregateSum,
			result:   domain.AggregateResult{Sum: 1234.5},
			expected: "Sum: 1,234.5",
		},
		{
			name:     "average always two decimals",
			kind:     domain.AggregateAverage,
			result:   domain.AggregateResult{Average: 2.5},
			expected: "Avg: 2.50",
		},
		{
			name:     "average whole number",
			kind:     domain.AggregateAverage,
			result:   domain.AggregateResult{Average: 15},
			expected: "Avg: 15.00",
		},
		{
			name:     "count",
			kind:     domain.AggregateCount,
			result:   domain.AggregateResult{Count: 1200},
			expected: "Count: 1,200",
		},
		{
			name:     "unknown kind",
			kind:     domain.AggregateKind("median"),
			result:   domain.AggregateResult{Sum: 1},
			expected: "",
		},
	}

	p := newPrinter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatAggregate(p, tt.kind, tt.result))
		})
	}
}

func TestFormatAggregate_EveryKindHasFormatter(t *testing.T) {
	for _, kind := range []domain.AggregateKind{domain.AggregateSum, domain.AggregateAverage, domain.AggregateCount} {
		_, ok := aggregateFormatters[kind]
		assert.True(t, ok, "missing formatter for %s", kind)
	}
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "", indent(0))
	assert.Equal(t, "  ", indent(1))
	assert.Equal(t, "      ", indent(3))
}

func TestStripNonASCII(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"Zürich", "Zrich"},
		{"北京 office", " office"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, stripNonASCII(tt.input))
	}
}
