package similarity

const (
	winklerScale     = 0.1
	winklerPrefixCap = 4
	winklerThreshold = 0.7
)

// StringSimilarity returns the Jaro-Winkler similarity of a and b in [0, 1].
// Identical strings score 1; an empty string against a non-empty one scores 0.
func StringSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 || len(s2) == 0 {
		return 0
	}

	weight := jaro(s1, s2)
	if weight <= winklerThreshold {
		return weight
	}

	limit := min(len(s1), len(s2), winklerPrefixCap)
	prefix := 0
	for prefix < limit && s1[prefix] == s2[prefix] {
		prefix++
	}
	return weight + float64(prefix)*winklerScale*(1-weight)
}

func jaro(s1, s2 []rune) float64 {
	window := max(len(s1), len(s2))/2 - 1
	if window < 0 {
		window = 0
	}

	matched1 := make([]bool, len(s1))
	matched2 := make([]bool, len(s2))
	common := 0
	for i, r := range s1 {
		lo := max(0, i-window)
		hi := min(i+window, len(s2)-1)
		for j := lo; j <= hi; j++ {
			if !matched2[j] && s2[j] == r {
				matched1[i], matched2[j] = true, true
				common++
				break
			}
		}
	}
	if common == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i, r := range s1 {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if r != s2[k] {
			transpositions++
		}
		k++
	}
	transpositions /= 2

	m := float64(common)
	return (m/float64(len(s1)) + m/float64(len(s2)) + (m-float64(transpositions))/m) / 3
}
