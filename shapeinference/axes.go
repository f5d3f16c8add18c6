package shapeinference

import (
	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/pkg/errors"
)

// AdjustAxisToRank returns a non-negative axis, adding rank to negative ones.
// It fails with ErrInvalidArgument if axis is not in [-rank, rank).
func AdjustAxisToRank(axis int64, rank int) (int, error) {
	r := int64(rank)
	if axis < -r || axis >= r {
		return -1, errors.Wrapf(ErrInvalidArgument, "axis %d is out of range for rank %d", axis, rank)
	}
	if axis < 0 {
		axis += r
	}
	return int(axis), nil
}

// normalizeAxes adjusts every axis to rank and returns them as a set.
// Repeated axes (after normalization) are rejected.
func normalizeAxes(axes []int64, rank int) (sets.Set[int], error) {
	axesSet := sets.Make[int](len(axes))
	for i, axis := range axes {
		adjusted, err := AdjustAxisToRank(axis, rank)
		if err != nil {
			return nil, errors.WithMessagef(err, "axes[%d]", i)
		}
		if axesSet.Has(adjusted) {
			return nil, errors.Wrapf(ErrInvalidArgument, "duplicate axis %d in axes=%v", axis, axes)
		}
		axesSet.Insert(adjusted)
	}
	return axesSet, nil
}

// checkPermutation verifies perm is a permutation of [0, rank).
func checkPermutation(perm []int, rank int) error {
	if len(perm) != rank {
		return errors.Wrapf(ErrInvalidArgument, "permutation %v has length %d, but the operand has rank %d",
			perm, len(perm), rank)
	}
	used := sets.Make[int](rank)
	for _, axis := range perm {
		if axis < 0 || axis >= rank {
			return errors.Wrapf(ErrInvalidArgument, "permutation %v has axis %d out of range for rank %d",
				perm, axis, rank)
		}
		if used.Has(axis) {
			return errors.Wrapf(ErrInvalidArgument, "permutation %v repeats axis %d, each axis must appear exactly once",
				perm, axis)
		}
		used.Insert(axis)
	}
	return nil
}
