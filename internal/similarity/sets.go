package similarity

import "errors"

// ErrEmptySets is returned by SetSimilarity when both sets are empty. Callers
// treat that case as a perfect match.
var ErrEmptySets = errors.New("similarity of two empty sets is undefined")

// ValueSet is a set of hashable values, as produced by ToHashable.
type ValueSet map[any]struct{}

// NewValueSet builds a set from already-hashable values.
func NewValueSet(values ...any) ValueSet {
	s := make(ValueSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// SetSimilarity returns the Jaccard index |l ∩ r| / |l ∪ r|.
func SetSimilarity(l, r ValueSet) (float64, error) {
	inter := 0
	for v := range l {
		if _, ok := r[v]; ok {
			inter++
		}
	}
	union := len(l) + len(r) - inter
	if union == 0 {
		return 0, ErrEmptySets
	}
	return float64(inter) / float64(union), nil
}

// rowSimilarity is SetSimilarity with the empty/empty case scored as 1.
func rowSimilarity(l, r ValueSet) float64 {
	sim, err := SetSimilarity(l, r)
	if err != nil {
		return 1
	}
	return sim
}
