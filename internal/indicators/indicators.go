// Package indicators computes technical indicator series over a price series.
//
// Every function returns a slice the same length as its input. Positions inside an
// indicator's warm-up period hold NaN.
package indicators

import "math"

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA returns the n-period simple moving average.
func SMA(vals []float64, n int) []float64 {
	out := nanSlice(len(vals))
	if n <= 0 || len(vals) < n {
		return out
	}
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= n {
			sum -= vals[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA returns the n-period exponential moving average with alpha 2/(n+1), seeded with the
// first defined value. Leading NaNs in the input are skipped; the first n-1 defined
// positions are warm-up.
func EMA(vals []float64, n int) []float64 {
	return ewm(vals, 2/float64(n+1), n)
}

// ewm is a recursive exponentially weighted mean (y = a*x + (1-a)*y), masked until minPeriods
// defined values have been seen.
func ewm(vals []float64, alpha float64, minPeriods int) []float64 {
	out := nanSlice(len(vals))
	if minPeriods <= 0 {
		return out
	}
	seen := 0
	var y float64
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if seen == 0 {
			y = v
		} else {
			y = alpha*v + (1-alpha)*y
		}
		seen++
		if seen >= minPeriods {
			out[i] = y
		}
	}
	return out
}

// RSI returns the n-period relative strength index using Wilder smoothing (alpha 1/n).
// A window with no losses reads 100.
func RSI(closes []float64, n int) []float64 {
	out := nanSlice(len(closes))
	if n <= 0 || len(closes) < 2 {
		return out
	}
	up := make([]float64, len(closes))
	down := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			up[i] = d
		} else {
			down[i] = -d
		}
	}
	alpha := 1 / float64(n)
	avgUp := ewm(up, alpha, n)
	avgDown := ewm(down, alpha, n)
	for i := range closes {
		if math.IsNaN(avgUp[i]) || math.IsNaN(avgDown[i]) {
			continue
		}
		if avgDown[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgUp[i] / avgDown[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD returns the MACD line (EMA fast minus EMA slow) and its signal-period EMA.
func MACD(closes []float64, fast, slow, signal int) (line, sig []float64) {
	f := EMA(closes, fast)
	s := EMA(closes, slow)
	line = nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(f[i]) && !math.IsNaN(s[i]) {
			line[i] = f[i] - s[i]
		}
	}
	return line, EMA(line, signal)
}

// StdDev returns the rolling n-period population standard deviation.
func StdDev(vals []float64, n int) []float64 {
	out := nanSlice(len(vals))
	mean := SMA(vals, n)
	for i := range vals {
		if math.IsNaN(mean[i]) {
			continue
		}
		s := 0.0
		for j := i - n + 1; j <= i; j++ {
			d := vals[j] - mean[i]
			s += d * d
		}
		out[i] = math.Sqrt(s / float64(n))
	}
	return out
}

// Bollinger returns the n-period middle band and the bands k standard deviations above and
// below it.
func Bollinger(closes []float64, n int, k float64) (mid, upper, lower []float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	upper = nanSlice(len(closes))
	lower = nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(mid[i]) {
			continue
		}
		upper[i] = mid[i] + k*sd[i]
		lower[i] = mid[i] - k*sd[i]
	}
	return mid, upper, lower
}
