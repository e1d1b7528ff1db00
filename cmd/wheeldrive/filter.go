package main

import "math"

// speedFilter is a windowed despiking filter. Samples are clamped, then
// rejected when they sit more than Threshold standard deviations from the
// window mean. The output is the mean of the accepted window.
//
// A run of Sustain consecutive rejections is a level change, not a spike: the
// sample that completes the run is accepted so the window can move.
type speedFilter struct {
	Window    int
	Threshold float64
	Min, Max  int
	Sustain   int

	History  []int
	Rejected int
}

func newSpeedFilter(window int, threshold float64, min, max int) speedFilter {
	if window < 1 {
		window = 1
	}
	return speedFilter{
		Window:    window,
		Threshold: threshold,
		Min:       min,
		Max:       max,
		Sustain:   defaultFilterSustain,
		History:   make([]int, 0, window),
	}
}

// Push feeds one sample and returns the filtered value.
func (f *speedFilter) Push(sample int) float64 {
	sample = clampInt(sample, f.Min, f.Max)

	if len(f.History) < f.Window {
		f.History = append(f.History, sample)
		return f.mean()
	}

	mean, sd := f.stats()
	if sd > 0 && math.Abs(float64(sample)-mean)/sd > f.Threshold {
		f.Rejected++
		if f.Rejected < f.Sustain {
			return mean
		}
	}
	f.Rejected = 0

	// Shift in place so the backing array is reused.
	copy(f.History, f.History[1:])
	f.History[len(f.History)-1] = sample
	return f.mean()
}

func (f *speedFilter) mean() float64 {
	if len(f.History) == 0 {
		return 0
	}
	sum := 0
	for _, v := range f.History {
		sum += v
	}
	return float64(sum) / float64(len(f.History))
}

func (f *speedFilter) stats() (mean, sd float64) {
	mean = f.mean()
	var sq float64
	for _, v := range f.History {
		d := float64(v) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(f.History)))
}
