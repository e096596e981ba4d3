package workflow

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"query-evolver/internal/apperrors"
)

// Transform is the work a stage performs on the working query. A string
// result replaces the working query for later stages; any other result is
// recorded but leaves the query untouched.
type Transform func(ctx context.Context, query string) (any, error)

// Registry keys. A stage resolves to the key matching its name slug.
const (
	KeyQueryAnalysis       = "query_analysis"
	KeyQueryOptimization   = "query_optimization"
	KeyQueryValidation     = "query_validation"
	KeyQueryExecution      = "query_execution"
	KeyPerformanceFeedback = "performance_feedback"
	KeyNewStage            = "new_stage"
)

const combinedPrefix = "combined_"

// Registry maps name slugs to statically known transforms.
type Registry struct {
	transforms map[string]Transform
}

// NewRegistry returns a registry holding the built-in transforms.
func NewRegistry() *Registry {
	r := &Registry{transforms: make(map[string]Transform)}
	r.Register(KeyQueryAnalysis, AnalyzeQuery)
	r.Register(KeyQueryOptimization, OptimizeQuery)
	r.Register(KeyQueryValidation, ValidateQuery)
	r.Register(KeyQueryExecution, PlanExecution)
	r.Register(KeyPerformanceFeedback, AnalyzePerformance)
	r.Register(KeyNewStage, AnalyzeQuery)
	return r
}

// Register binds key to fn, replacing any earlier binding.
func (r *Registry) Register(key string, fn Transform) {
	r.transforms[key] = fn
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.transforms))
	for k := range r.transforms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Slug converts a stage name to its registry form: lower case, runs of
// spaces replaced with underscores.
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// Resolve finds the transform for a stage name. The slug is looked up
// directly; failing that, "combined_" prefixes are dropped and the longest
// key that prefixes the remainder on a word boundary wins.
func (r *Registry) Resolve(stageName string) (Transform, error) {
	slug := Slug(stageName)
	if fn, ok := r.transforms[slug]; ok {
		return fn, nil
	}

	for strings.HasPrefix(slug, combinedPrefix) {
		slug = strings.TrimPrefix(slug, combinedPrefix)
	}

	var best string
	for key := range r.transforms {
		if (slug == key || strings.HasPrefix(slug, key+"_")) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return nil, apperrors.Configurationf("resolve transform", "no transform registered for stage %q (slug %q); known transforms: %s",
			stageName, Slug(stageName), strings.Join(r.Keys(), ", "))
	}
	return r.transforms[best], nil
}

var (
	clausePattern = regexp.MustCompile(`(?i)\b(OPTIONAL\s+MATCH|MATCH|WHERE|WITH|UNWIND|RETURN|ORDER\s+BY|SKIP|LIMIT|CREATE|MERGE|SET|DELETE|DETACH\s+DELETE|REMOVE|CALL)\b`)
	writePattern  = regexp.MustCompile(`(?i)\b(CREATE|MERGE|SET|DELETE|REMOVE|DROP)\b`)
	orPattern     = regexp.MustCompile(`(?i)\bWHERE\b.*\bOR\b`)
	limitPattern  = regexp.MustCompile(`(?i)\bLIMIT\b`)
	returnPattern = regexp.MustCompile(`(?i)\bRETURN\b`)
)

func clauseCount(query string) int {
	return len(clausePattern.FindAllString(query, -1))
}

func opportunities(query string) []string {
	var out []string
	if !strings.Contains(strings.ToUpper(query), "WHERE") && strings.Contains(query, "{") {
		out = append(out, "index_usage")
	}
	if strings.Count(strings.ToUpper(query), "MATCH") > 1 {
		out = append(out, "clause_order")
	}
	if orPattern.MatchString(query) {
		out = append(out, "condition_simplification")
	}
	if returnPattern.MatchString(query) && !limitPattern.MatchString(query) {
		out = append(out, "result_limit")
	}
	return out
}

// AnalyzeQuery reports a rough complexity score and rewrite opportunities.
func AnalyzeQuery(_ context.Context, query string) (any, error) {
	return map[string]any{
		"complexity":                 min(float64(clauseCount(query))/10, 1),
		"optimization_opportunities": opportunities(query),
	}, nil
}

// OptimizeQuery returns the query with whitespace collapsed and any trailing
// semicolon removed.
func OptimizeQuery(_ context.Context, query string) (any, error) {
	q := strings.Join(strings.Fields(query), " ")
	return strings.TrimSpace(strings.TrimSuffix(q, ";")), nil
}

// ValidateQuery reports whether the query is non-empty, has balanced
// brackets and quotes, and returns or writes something.
func ValidateQuery(_ context.Context, query string) (any, error) {
	if strings.TrimSpace(query) == "" {
		return false, nil
	}
	if !balanced(query) {
		return false, nil
	}
	return returnPattern.MatchString(query) || writePattern.MatchString(query), nil
}

func balanced(query string) bool {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	var stack []rune
	var quote rune
	for _, r := range query {
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"', '`':
			quote = r
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return quote == 0 && len(stack) == 0
}

// PlanExecution describes how the query would run without touching a
// database.
func PlanExecution(_ context.Context, query string) (any, error) {
	return map[string]any{
		"statement": query,
		"read_only": !writePattern.MatchString(query),
		"clauses":   clauseCount(query),
	}, nil
}

// AnalyzePerformance scores the query inversely to its complexity.
func AnalyzePerformance(_ context.Context, query string) (any, error) {
	complexity := min(float64(clauseCount(query))/10, 1)
	return map[string]any{
		"performance_score": 1 - complexity,
		"improvement_areas": opportunities(query),
	}, nil
}
