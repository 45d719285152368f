package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsInt(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int
		wantOK bool
	}{
		{"Int", 5, 5, true},
		{"Int64", int64(-3), -3, true},
		{"JSON Float", float64(10), 10, true},
		{"Negative Float", float64(-10), -10, true},
		{"Fractional", 1.5, 0, false},
		{"Float Above Range", 1e19, 0, false},
		{"Float Below Range", -1e19, 0, false},
		{"Float Just Above Int32", float64(math.MaxInt32) + 1, 0, false},
		{"Infinity", math.Inf(1), 0, false},
		{"NaN", math.NaN(), 0, false},
		{"JSON Number", json.Number("7"), 7, true},
		{"JSON Number Overflow", json.Number("99999999999999999999"), 0, false},
		{"String", "42", 42, true},
		{"Garbage", "forty", 0, false},
		{"Nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsInt(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
