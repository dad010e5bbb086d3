package WENOHybrid

import "math"

// LimiterFunction maps y, the allowed excursion over the requested one, onto the fraction of the correction kept
type LimiterFunction func(y float64) float64

const michalakGoochYt = 1.5

// MichalakGooch is the cubic of Michalak and Gooch, f(y) = y + a y^2 + b y^3 below y_t and 1 above. It is C1 at
// y_t, with f(0) = 0 and f(y) <= min(y,1).
func MichalakGooch(y float64) float64 {
	const (
		yt = michalakGoochYt
		a  = (3 - 2*yt) / (yt * yt)
		b  = (yt - 2) / (yt * yt * yt)
	)
	switch {
	case y <= 0:
		return 0
	case y >= yt:
		return 1
	}
	return y + a*y*y + b*y*y*y
}

// cellBounds fills the component bounds of every owned cell over itself and its immediate neighbours
func (s *Scheme[T]) cellBounds(values []T) {
	var (
		alg = s.alg
		nc  = alg.NComponents()
	)
	for c := 0; c < s.m.NOwned; c++ {
		for d := 0; d < nc; d++ {
			lo := alg.Component(values[c], d)
			hi := lo
			for _, nb := range s.m.Neighbours[c] {
				v := alg.Component(values[nb.Cell], d)
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
			s.ws.lo[c*nc+d], s.ws.hi[c*nc+d] = lo, hi
		}
	}
}

// calcLimiter pulls the one sided value W of cell c back toward the linear face value L so that it stays inside the
// bounds of c. Components with flat bounds return L. With LimitingFlag 0 only the flat case applies.
func (s *Scheme[T]) calcLimiter(c int, W, L T) (limited T, active bool) {
	var (
		alg = s.alg
		nc  = alg.NComponents()
	)
	limited = W
	for d := 0; d < nc; d++ {
		var (
			lo, hi = s.ws.lo[c*nc+d], s.ws.hi[c*nc+d]
			l      = alg.Component(L, d)
			delta  = alg.Component(W, d) - l
			f      = 1.
		)
		if hi == lo {
			limited = alg.SetComponent(limited, d, l)
			continue
		}
		switch {
		case delta > 0:
			f = s.limiterFn((hi - l) / delta)
		case delta < 0:
			f = s.limiterFn((lo - l) / delta)
		}
		f = 1 - s.LimitingFlag*(1-f)
		if f < 1 {
			limited = alg.SetComponent(limited, d, l+f*delta)
			active = true
		}
	}
	return
}
