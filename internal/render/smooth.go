package render

import "github.com/fortuna/stathistory/internal/stats"

// Smooth applies a centered rolling mean. Each defined sample becomes the
// mean of the defined samples in its window; undefined samples stay
// undefined so the chart keeps its gaps. An even window leans one point
// to the left, as a centered pandas window does.
func Smooth(values []stats.Value, window int) []stats.Value {
	out := make([]stats.Value, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}

	left, right := window/2, (window-1)/2
	for i, v := range values {
		if !v.Defined() {
			out[i] = stats.Undefined
			continue
		}
		sum, n := 0.0, 0
		for j := max(i-left, 0); j <= min(i+right, len(values)-1); j++ {
			if f, ok := values[j].Float(); ok {
				sum += f
				n++
			}
		}
		out[i] = stats.Of(sum / float64(n))
	}
	return out
}

// keepPoints lists the indexes where at least one series is defined.
func keepPoints(series [][]stats.Value, n int) []int {
	var keep []int
	for i := 0; i < n; i++ {
		for _, s := range series {
			if s[i].Defined() {
				keep = append(keep, i)
				break
			}
		}
	}
	return keep
}

func pick(values []stats.Value, idx []int) []stats.Value {
	out := make([]stats.Value, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
