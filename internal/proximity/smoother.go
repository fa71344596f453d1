package proximity

import "fmt"

// Smoother keeps one exponentially smoothed distance per key.
//
// A Smoother has a single owner and is not safe for concurrent use. The
// registry and each tracking session keep their own instance.
type Smoother[K comparable] struct {
	alpha  float64
	values map[K]float64
}

// NewSmoother creates a smoother. alpha is the weight of the newest reading
// and must be in (0,1].
func NewSmoother[K comparable](alpha float64) (*Smoother[K], error) {
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("smoothing alpha %.3f not in (0,1]", alpha)
	}
	return &Smoother[K]{
		alpha:  alpha,
		values: make(map[K]float64),
	}, nil
}

// Alpha returns the configured smoothing factor.
func (s *Smoother[K]) Alpha() float64 {
	return s.alpha
}

// Smooth folds raw into the stored value for key and returns the result.
// The first known reading for a key is returned unchanged. Unknown readings
// leave the stored value untouched.
func (s *Smoother[K]) Smooth(key K, raw Distance) Distance {
	v, ok := raw.Value()
	if !ok {
		return s.Value(key)
	}

	prev, seen := s.values[key]
	if !seen {
		s.values[key] = v
		return Known(v)
	}

	next := prev*(1-s.alpha) + v*s.alpha
	s.values[key] = next
	return Known(next)
}

// Value returns the stored value for key, or Unknown.
func (s *Smoother[K]) Value(key K) Distance {
	if v, ok := s.values[key]; ok {
		return Known(v)
	}
	return Unknown
}

// Clear drops the state for one key.
func (s *Smoother[K]) Clear(key K) {
	delete(s.values, key)
}

// ClearAll drops every key.
func (s *Smoother[K]) ClearAll() {
	clear(s.values)
}

// Len returns the number of keys with stored state.
func (s *Smoother[K]) Len() int {
	return len(s.values)
}
