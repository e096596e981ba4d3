// Package similarity scores how close two query result sets are.
//
// The scorer is pure and deterministic. Rows are reduced to sets of
// hashable values, optionally aligned greedily against each other, and the
// two datasets are compared with a Jaccard index over (row index, value)
// pairs. Numbers that arrive as different Go types compare equal; text is
// never coerced.
package similarity
