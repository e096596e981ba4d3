package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSimilarityKnownValues(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"MARTHA", "MARHTA", 0.9611},
		{"DWAYNE", "DUANE", 0.84},
		{"DIXON", "DICKSONX", 0.8133},
		{"abc", "xyz", 0},
		{"", "x", 0},
		{"x", "", 0},
		{"", "", 1},
		{"MATCH (n) RETURN n", "MATCH (n) RETURN n", 1},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, StringSimilarity(tc.a, tc.b), 1e-3, "%q vs %q", tc.a, tc.b)
	}
}

func TestStringSimilarityPrefixBonus(t *testing.T) {
	// Same characters, longer shared prefix scores higher.
	withPrefix := StringSimilarity("abcdxyz", "abcdzyx")
	withoutPrefix := StringSimilarity("xbcdayz", "abcdzyx")
	assert.Greater(t, withPrefix, withoutPrefix)
}

func TestStringSimilarityPrefixCappedAtFour(t *testing.T) {
	// Jaro weight is identical; only the prefix differs and it is capped.
	four := StringSimilarity("abcdefgh", "abcdefgz")
	assert.InDelta(t, jaro([]rune("abcdefgh"), []rune("abcdefgz"))+0.4*(1-jaro([]rune("abcdefgh"), []rune("abcdefgz"))), four, 1e-12)
}

func TestStringSimilarityRunes(t *testing.T) {
	assert.Equal(t, 1.0, StringSimilarity("héllo", "héllo"))
	assert.Greater(t, StringSimilarity("héllo", "hello"), 0.8)
}
