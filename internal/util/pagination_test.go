package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOffset(t *testing.T) {
	cases := []struct {
		name         string
		page, size   int
		offset, want int
	}{
		{"first page", 1, 10, 0, 10},
		{"third page", 3, 20, 40, 20},
		{"zero page clamps to first", 0, 10, 0, 10},
		{"negative size falls back", 2, -5, 10, 10},
		{"oversized size falls back", 1, 500, 0, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			offset, limit := Offset(tc.page, tc.size)
			require.Equal(t, tc.offset, offset)
			require.Equal(t, tc.want, limit)
		})
	}
}
