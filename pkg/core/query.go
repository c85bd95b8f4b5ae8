package core

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Matcher decides whether a record's attributes satisfy the predicate carried by params.
type Matcher interface {
	Match(params Params, attrs Attributes) (bool, error)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(params Params, attrs Attributes) (bool, error)

// Match implements Matcher.
func (f MatcherFunc) Match(params Params, attrs Attributes) (bool, error) { return f(params, attrs) }

// Reserved keys of params["query"]. Any other key is an equality shorthand.
const (
	queryKey   = "query"
	whereKey   = "where"
	orderByKey = "orderBy"
	sortKey    = "sort"
	skipKey    = "skip"
	offsetKey  = "offset"
	limitKey   = "limit"
)

// Where builds params for a single-field predicate, e.g. Where("age", "==", 33).
func Where(field, op string, value any) Params {
	return Params{queryKey: map[string]any{whereKey: map[string]any{field: map[string]any{op: value}}}}
}

// WhereMatcher evaluates params of the form
//
//	{"query": {"where": {"age": {"==": 33}, "name": {"|==": "Sally"}}}}
//
// Supported operators: ==, ===, !=, !==, >, >=, <, <=, in, notIn, contains, notContains.
// An operator prefixed with "|" is OR-ed with the clauses before it; others are AND-ed.
// Fields, then operators, are evaluated in lexical order.
type WhereMatcher struct{}

// Match implements Matcher.
func (WhereMatcher) Match(params Params, attrs Attributes) (bool, error) {
	where, err := whereClause(params)
	if err != nil {
		return false, err
	}
	if len(where) == 0 {
		return true, nil
	}

	first := true
	keep := true
	for _, field := range sortedKeys(where) {
		clause, ok := asMap(where[field])
		if !ok {
			clause = map[string]any{"==": where[field]}
		}
		value := attrs[field]
		for _, op := range sortedKeys(clause) {
			or := strings.HasPrefix(op, "|")
			expr, err := evaluate(strings.TrimPrefix(op, "|"), value, clause[op])
			if err != nil {
				return false, err
			}
			switch {
			case first:
				keep = expr
				first = false
			case or:
				keep = keep || expr
			default:
				keep = keep && expr
			}
		}
	}
	return keep, nil
}

func queryOf(params Params) (map[string]any, error) {
	if params == nil {
		return nil, nil
	}
	raw, ok := params[queryKey]
	if !ok || raw == nil {
		return nil, nil
	}
	q, ok := asMap(raw)
	if !ok {
		return nil, &IllegalArgumentError{Message: "params.query: Must be an object!"}
	}
	return q, nil
}

func whereClause(params Params) (map[string]any, error) {
	q, err := queryOf(params)
	if err != nil || q == nil {
		return nil, err
	}
	where := make(map[string]any)
	if raw, ok := q[whereKey]; ok && raw != nil {
		w, ok := asMap(raw)
		if !ok {
			return nil, &IllegalArgumentError{Message: "params.query.where: Must be an object!"}
		}
		for k, v := range w {
			where[k] = v
		}
	}
	for k, v := range q {
		switch k {
		case whereKey, orderByKey, sortKey, skipKey, offsetKey, limitKey:
			continue
		}
		where[k] = map[string]any{"==": v}
	}
	return where, nil
}

func evaluate(op string, value, term any) (bool, error) {
	switch op {
	case "==":
		return looseEqual(value, term), nil
	case "===":
		return reflect.TypeOf(value) == reflect.TypeOf(term) && reflect.DeepEqual(value, term), nil
	case "!=":
		return !looseEqual(value, term), nil
	case "!==":
		return !(reflect.TypeOf(value) == reflect.TypeOf(term) && reflect.DeepEqual(value, term)), nil
	case ">", ">=", "<", "<=":
		cmp, ok := compare(value, term)
		if !ok {
			return false, nil
		}
		switch op {
		case ">":
			return cmp > 0, nil
		case ">=":
			return cmp >= 0, nil
		case "<":
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case "in":
		return containsValue(term, value), nil
	case "notIn":
		return !containsValue(term, value), nil
	case "contains":
		return containsValue(value, term), nil
	case "notContains":
		return !containsValue(value, term), nil
	default:
		return false, &IllegalArgumentError{Message: fmt.Sprintf("params.query.where: unsupported operator %q!", op)}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int, int8, int16, int32, int64:
		return float64(reflect.ValueOf(n).Int()), true
	case uint, uint8, uint16, uint32, uint64:
		return float64(reflect.ValueOf(n).Uint()), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func looseEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

// compare orders numbers numerically and strings lexically.
func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	sa, ok := a.(string)
	if !ok {
		return 0, false
	}
	sb, ok := b.(string)
	if !ok {
		return 0, false
	}
	return strings.Compare(sa, sb), true
}

// containsValue reports whether haystack (a slice or a string) contains needle.
func containsValue(haystack, needle any) bool {
	if s, ok := haystack.(string); ok {
		n, ok := needle.(string)
		return ok && strings.Contains(s, n)
	}
	rv := reflect.ValueOf(haystack)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if looseEqual(rv.Index(i).Interface(), needle) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type orderTerm struct {
	field string
	desc  bool
}

func orderTerms(q map[string]any) ([]orderTerm, error) {
	raw, ok := q[orderByKey]
	if !ok {
		raw, ok = q[sortKey]
	}
	if !ok || raw == nil {
		return nil, nil
	}
	parseOne := func(v any) (orderTerm, error) {
		switch t := v.(type) {
		case string:
			return orderTerm{field: t}, nil
		case []string:
			if len(t) == 2 {
				return orderTerm{field: t[0], desc: strings.EqualFold(t[1], "DESC")}, nil
			}
		case []any:
			if len(t) == 2 {
				field, ok1 := t[0].(string)
				dir, ok2 := t[1].(string)
				if ok1 && ok2 {
					return orderTerm{field: field, desc: strings.EqualFold(dir, "DESC")}, nil
				}
			}
		}
		return orderTerm{}, &IllegalArgumentError{Message: "params.query.orderBy: Must be a string or [field, direction] pairs!"}
	}

	switch t := raw.(type) {
	case string:
		return []orderTerm{{field: t}}, nil
	case []string:
		if len(t) == 2 && (strings.EqualFold(t[1], "ASC") || strings.EqualFold(t[1], "DESC")) {
			term, err := parseOne(t)
			return []orderTerm{term}, err
		}
		terms := make([]orderTerm, 0, len(t))
		for _, f := range t {
			terms = append(terms, orderTerm{field: f})
		}
		return terms, nil
	case []any:
		terms := make([]orderTerm, 0, len(t))
		for _, item := range t {
			term, err := parseOne(item)
			if err != nil {
				return nil, err
			}
			terms = append(terms, term)
		}
		return terms, nil
	default:
		return nil, &IllegalArgumentError{Message: "params.query.orderBy: Must be a string or an array!"}
	}
}

func intParam(q map[string]any, keys ...string) (int, bool, error) {
	for _, key := range keys {
		raw, ok := q[key]
		if !ok || raw == nil {
			continue
		}
		f, ok := toFloat(raw)
		if !ok || f < 0 {
			return 0, false, &IllegalArgumentError{Message: fmt.Sprintf("params.query.%s: Must be a non-negative number!", key)}
		}
		return int(f), true, nil
	}
	return 0, false, nil
}

// filterRecords applies the predicate, ordering and paging of params to records.
func filterRecords(m Matcher, params Params, records []*Record) ([]*Record, error) {
	attrs := make([]Attributes, len(records))
	for i, rec := range records {
		attrs[i] = rec.Attributes()
	}
	idx, err := selectIndexes(m, params, attrs)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, len(idx))
	for i, j := range idx {
		out[i] = records[j]
	}
	return out, nil
}

// Select applies the predicate, ordering and paging of params to plain attribute
// maps. Backends use it to answer queries the same way the store filters locally.
func Select(m Matcher, params Params, items []Attributes) ([]Attributes, error) {
	if m == nil {
		m = WhereMatcher{}
	}
	idx, err := selectIndexes(m, params, items)
	if err != nil {
		return nil, err
	}
	out := make([]Attributes, len(idx))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out, nil
}

// selectIndexes returns the positions of the items kept by params, in result order.
func selectIndexes(m Matcher, params Params, items []Attributes) ([]int, error) {
	q, err := queryOf(params)
	if err != nil {
		return nil, err
	}

	matched := make([]int, 0, len(items))
	for i, attrs := range items {
		ok, err := m.Match(params, attrs)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, i)
		}
	}
	if q == nil {
		return matched, nil
	}

	terms, err := orderTerms(q)
	if err != nil {
		return nil, err
	}
	if len(terms) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			a, b := items[matched[i]], items[matched[j]]
			for _, t := range terms {
				cmp, ok := compare(a[t.field], b[t.field])
				if !ok || cmp == 0 {
					continue
				}
				if t.desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	skip, hasSkip, err := intParam(q, skipKey, offsetKey)
	if err != nil {
		return nil, err
	}
	if hasSkip {
		if skip > len(matched) {
			skip = len(matched)
		}
		matched = matched[skip:]
	}
	limit, hasLimit, err := intParam(q, limitKey)
	if err != nil {
		return nil, err
	}
	if hasLimit && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}
