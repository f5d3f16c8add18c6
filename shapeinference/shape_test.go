package shapeinference

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDim(t *testing.T) {
	d := Bound(5)
	extent, ok := d.Extent()
	require.True(t, ok)
	assert.Equal(t, int64(5), extent)
	assert.False(t, d.IsSymbolic())
	assert.Equal(t, "5", d.String())

	batch := Symbolic("batch")
	assert.True(t, batch.IsSymbolic())
	assert.Equal(t, "batch", batch.Name())
	_, ok = batch.Extent()
	assert.False(t, ok)
	_, ok = batch.Resolve(nil)
	assert.False(t, ok)
	extent, ok = batch.Resolve(Bindings{"batch": 8})
	require.True(t, ok)
	assert.Equal(t, int64(8), extent)

	// Dims are comparable values.
	assert.Equal(t, Symbolic("batch"), batch)
	assert.NotEqual(t, Symbolic("seq"), batch)
	assert.Equal(t, Bound(0), Dim{})

	require.Panics(t, func() { Bound(-1) })
	require.Panics(t, func() { Symbolic("") })
}

func TestShape(t *testing.T) {
	s := MakeDynamic("batch", 3, int64(4), Bound(1), int32(2))
	assert.Equal(t, 5, s.Rank())
	assert.False(t, s.IsScalar())
	assert.False(t, s.IsFullyStatic())
	assert.Equal(t, "[batch, 3, 4, 1, 2]", s.String())
	assert.Equal(t, []string{"batch"}, s.SymbolicNames())

	_, ok := s.Resolve(Bindings{"seq": 3})
	assert.False(t, ok)
	extents, ok := s.Resolve(Bindings{"batch": 2})
	require.True(t, ok)
	assert.Equal(t, []int64{2, 3, 4, 1, 2}, extents)
	size, ok := s.Size(Bindings{"batch": 2})
	require.True(t, ok)
	assert.Equal(t, int64(48), size)

	scalar := Make()
	assert.True(t, scalar.IsScalar())
	assert.True(t, scalar.IsFullyStatic())
	assert.Equal(t, "[]", scalar.String())
	size, ok = scalar.Size(nil)
	require.True(t, ok)
	assert.Equal(t, int64(1), size)

	require.Panics(t, func() { MakeDynamic(1.5) })

	// Element counts that don't fit int64.
	_, ok = Make(1<<32, 1<<32).Size(nil)
	assert.False(t, ok)
	size, ok = Make(1<<32, 1<<32, 0).Size(nil)
	require.True(t, ok)
	assert.Equal(t, int64(0), size)
}

func TestProduct(t *testing.T) {
	for _, tc := range []struct {
		extents []int64
		want    int64
		ok      bool
	}{
		{nil, 1, true},
		{[]int64{2, 3, 4}, 24, true},
		{[]int64{1 << 31, 1 << 31}, 1 << 62, true},
		{[]int64{1 << 32, 1 << 32}, 0, false},
		{[]int64{1 << 62, 2}, 0, false},
		{[]int64{1 << 62, 1 << 62, 0}, 0, true},
	} {
		got, ok := Product(tc.extents)
		assert.Equal(t, tc.ok, ok, "Product(%v)", tc.extents)
		assert.Equal(t, tc.want, got, "Product(%v)", tc.extents)
	}
}

func TestShapeEqualAndClone(t *testing.T) {
	s := MakeDynamic("batch", "seq", 768)
	assert.True(t, s.Equal(MakeDynamic("batch", "seq", 768)))
	assert.False(t, s.Equal(MakeDynamic("batch", "tokens", 768)))
	assert.False(t, s.Equal(MakeDynamic("batch", "seq")))
	assert.False(t, Make(2, 3).Equal(MakeDynamic("a", 3)))

	clone := s.Clone()
	clone.Dimensions[0] = Bound(1)
	assert.Equal(t, "[batch, seq, 768]", s.String())

	fromDims := FromDims(s.Dimensions)
	if diff := cmp.Diff(s.Dimensions, fromDims.Dimensions, cmp.AllowUnexported(Dim{})); diff != "" {
		t.Errorf("FromDims() mismatch (-want +got):\n%s", diff)
	}
	extents, ok := fromDims.Resolve(Bindings{"batch": 2, "seq": 16})
	require.True(t, ok)
	if diff := cmp.Diff([]int64{2, 16, 768}, extents); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"a", "b"}, MakeDynamic("a", "b", "a", 1).SymbolicNames())
}

func TestBindings(t *testing.T) {
	var empty Bindings
	assert.Equal(t, "", empty.Key())
	assert.Nil(t, empty.Clone())
	require.NoError(t, empty.Validate())

	b := Bindings{"seq": 128, "batch": 4}
	assert.Equal(t, "batch=4,seq=128", b.Key())

	clone := b.Clone()
	clone["batch"] = 1
	assert.Equal(t, int64(4), b["batch"])

	require.NoError(t, b.Merge(Bindings{"batch": 4, "heads": 12}))
	assert.Equal(t, "batch=4,heads=12,seq=128", b.Key())
	require.Error(t, b.Merge(Bindings{"seq": 64}))

	require.Error(t, Bindings{"": 1}.Validate())
	require.Error(t, Bindings{"batch": -1}.Validate())
}

func TestAdjustAxisToRank(t *testing.T) {
	axis, err := AdjustAxisToRank(-1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, axis)
	axis, err = AdjustAxisToRank(0, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, axis)
	axis, err = AdjustAxisToRank(-3, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, axis)

	_, err = AdjustAxisToRank(3, 3)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = AdjustAxisToRank(-4, 3)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = AdjustAxisToRank(0, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
