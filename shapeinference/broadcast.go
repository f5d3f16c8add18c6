package shapeinference

// Broadcast returns the shape resulting from combining the concrete shapes a and b under NumPy broadcasting rules,
// or false if they are incompatible.
//
// Shapes are aligned on their trailing axes: the shorter one is padded with 1s on its leading side. For each
// aligned pair the extents must be equal, or one of them must be 1, in which case the other one is used.
func Broadcast(a, b []int64) ([]int64, bool) {
	rank := max(len(a), len(b))
	output := make([]int64, rank)
	for i := 0; i < rank; i++ {
		aDim, bDim := int64(1), int64(1)
		if i < len(a) {
			aDim = a[len(a)-1-i]
		}
		if i < len(b) {
			bDim = b[len(b)-1-i]
		}
		switch {
		case aDim == bDim:
			output[rank-1-i] = aDim
		case aDim == 1:
			output[rank-1-i] = bDim
		case bDim == 1:
			output[rank-1-i] = aDim
		default:
			return nil, false
		}
	}
	return output, true
}
