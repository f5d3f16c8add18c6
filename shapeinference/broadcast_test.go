package shapeinference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcast(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     []int64
		expected []int64
		ok       bool
	}{
		{"equal", []int64{3, 4}, []int64{3, 4}, []int64{3, 4}, true},
		{"trailing-1", []int64{2, 3, 4}, []int64{4}, []int64{2, 3, 4}, true},
		{"both-sides", []int64{1, 4}, []int64{3, 1}, []int64{3, 4}, true},
		{"rank-padding", []int64{5, 1, 3}, []int64{2, 1}, []int64{5, 2, 3}, true},
		{"scalar", []int64{}, []int64{7, 2}, []int64{7, 2}, true},
		{"zero-extent", []int64{0, 3}, []int64{1, 3}, []int64{0, 3}, true},
		{"incompatible", []int64{3, 4}, []int64{3, 5}, nil, false},
		{"incompatible-leading", []int64{2, 3, 4}, []int64{5, 1, 4}, nil, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Broadcast(tc.a, tc.b)
			require.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.expected, got)
			}

			// Broadcasting is commutative.
			gotSwapped, okSwapped := Broadcast(tc.b, tc.a)
			require.Equal(t, ok, okSwapped)
			assert.Equal(t, got, gotSwapped)
		})
	}
}

func TestBroadcastIdentity(t *testing.T) {
	for _, dims := range [][]int64{{}, {1}, {7}, {2, 3, 4}, {1, 1, 5}} {
		got, ok := Broadcast(dims, dims)
		require.True(t, ok)
		assert.Equal(t, dims, got)

		// A scalar is the identity of broadcasting.
		got, ok = Broadcast(dims, nil)
		require.True(t, ok)
		assert.Equal(t, dims, got)
	}
}
