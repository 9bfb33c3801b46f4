package embed

// PadBatch pads ragged per-token states into a rectangular
// [batch][tokens][dim] tensor and returns the matching attention mask.
// Rows longer than maxTokens are truncated; maxTokens <= 0 disables the cap.
func PadBatch(ragged [][][]float32, maxTokens int) (states [][][]float32, mask [][]int) {
	width, dim := 0, 0
	for _, row := range ragged {
		n := len(row)
		if maxTokens > 0 && n > maxTokens {
			n = maxTokens
		}
		if n > width {
			width = n
		}
		if dim == 0 && len(row) > 0 {
			dim = len(row[0])
		}
	}

	states = make([][][]float32, len(ragged))
	mask = make([][]int, len(ragged))
	for i, row := range ragged {
		states[i] = make([][]float32, width)
		mask[i] = make([]int, width)
		for t := 0; t < width; t++ {
			if t < len(row) {
				states[i][t] = row[t]
				mask[i][t] = 1
			} else {
				states[i][t] = make([]float32, dim)
			}
		}
	}
	return states, mask
}

// MeanPool averages token states weighted by the attention mask. Padding
// tokens contribute nothing and the denominator is floored at
// PoolingEpsilon, so a fully masked row yields a zero vector.
func MeanPool(states [][][]float32, mask [][]int) [][]float32 {
	out := make([][]float32, len(states))
	for i, row := range states {
		dim := 0
		if len(row) > 0 {
			dim = len(row[0])
		}
		sum := make([]float64, dim)
		var count float64
		for t, tok := range row {
			if mask[i][t] == 0 {
				continue
			}
			count++
			for d := 0; d < dim && d < len(tok); d++ {
				sum[d] += float64(tok[d])
			}
		}
		if count < PoolingEpsilon {
			count = PoolingEpsilon
		}
		vec := make([]float32, dim)
		for d := range sum {
			vec[d] = float32(sum[d] / count)
		}
		out[i] = vec
	}
	return out
}
