package math

import "testing"

func TestDivRoundUp(t *testing.T) {
	for _, tc := range []struct {
		a, b, wanted uint32
	}{
		{a: 0, b: 512, wanted: 0},
		{a: 1, b: 512, wanted: 1},
		{a: 512, b: 512, wanted: 1},
		{a: 513, b: 512, wanted: 2},
		{a: 4096 * 76, b: 512, wanted: 608},
	} {
		if found := DivRoundUp(tc.a, tc.b); found != tc.wanted {
			t.Fatalf(
				"DivRoundUp(%d, %d): wanted `%d`; found `%d`",
				tc.a,
				tc.b,
				tc.wanted,
				found,
			)
		}
	}
}
