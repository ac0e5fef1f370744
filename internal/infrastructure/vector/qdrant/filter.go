package qdrant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dfedorov/codequery/internal/core/domain"
)

// Portable filter expressions use Mongo-style operators; this file turns
// them into Qdrant's native filter JSON. Unknown operators fail closed with
// domain.ErrUnsupportedFilter — a silent skip would turn a caller bug into
// wrong search results.

var supportedLogicalOperators = map[string]struct{}{
	"$and": {}, "$or": {}, "$not": {},
}

var supportedFieldOperators = map[string]struct{}{
	"$eq": {}, "$ne": {}, "$gt": {}, "$gte": {}, "$lt": {}, "$lte": {},
	"$in": {}, "$nin": {}, "$regex": {}, "$exists": {},
	"$count": {}, "$geo_box": {}, "$geo_radius": {}, "$geo_polygon": {},
	"$nested": {}, "$datetime": {}, "$null": {}, "$empty": {},
}

var supportedTopLevelOperators = map[string]struct{}{
	"$has_id": {}, "$has_vector": {},
}

// TranslateFilter converts a portable filter into Qdrant's native filter
// map. An empty filter translates to nil (identity). The result is always
// a single condition object or a must-wrapped list, never a bare array.
func TranslateFilter(f domain.Filter) (map[string]any, error) {
	if f.IsEmpty() {
		return nil, nil
	}
	if err := validateFilter(map[string]any(f)); err != nil {
		return nil, err
	}

	conditions, err := translateExpression(map[string]any(f))
	if err != nil {
		return nil, err
	}
	if len(conditions) == 0 {
		return nil, nil
	}

	combined := combineAnd(conditions)
	if isFilterClause(combined) {
		return combined, nil
	}
	return map[string]any{"must": []any{combined}}, nil
}

func validateFilter(expr map[string]any) error {
	for key, value := range expr {
		if strings.HasPrefix(key, "$") {
			_, logical := supportedLogicalOperators[key]
			_, topLevel := supportedTopLevelOperators[key]
			if !logical && !topLevel {
				return domain.WrapError(domain.ErrUnsupportedFilter, "validate filter",
					fmt.Errorf("logical operator %q", key))
			}
			if logical {
				if err := validateChildren(value); err != nil {
					return err
				}
			}
			continue
		}

		opObject, ok := value.(map[string]any)
		if !ok {
			continue
		}
		for op, operand := range opObject {
			if !strings.HasPrefix(op, "$") {
				continue
			}
			if _, supported := supportedFieldOperators[op]; !supported {
				return domain.WrapError(domain.ErrUnsupportedFilter, "validate filter",
					fmt.Errorf("field operator %q on %q", op, key))
			}
			if op == "$nested" {
				nested, ok := operand.(map[string]any)
				if !ok {
					return domain.WrapError(domain.ErrUnsupportedFilter, "validate filter",
						fmt.Errorf("$nested operand on %q must be an object", key))
				}
				if err := validateFilter(nested); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateChildren(value any) error {
	switch v := value.(type) {
	case []any:
		for _, child := range v {
			childMap, ok := child.(map[string]any)
			if !ok {
				return domain.WrapError(domain.ErrUnsupportedFilter, "validate filter",
					fmt.Errorf("logical operand must be an object, got %T", child))
			}
			if err := validateFilter(childMap); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		return validateFilter(v)
	default:
		return domain.WrapError(domain.ErrUnsupportedFilter, "validate filter",
			fmt.Errorf("logical operand must be an object or list, got %T", value))
	}
}

// translateExpression walks one expression object and returns its list of
// native conditions. Multiple keys without logical operators are an
// implicit AND.
func translateExpression(expr map[string]any) ([]any, error) {
	conditions := make([]any, 0, len(expr))
	for key, value := range expr {
		switch key {
		case "$and":
			children, err := translateLogicalChildren(value)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, combineAnd(children))
		case "$or":
			children, err := translateLogicalChildren(value)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, map[string]any{"should": children})
		case "$not":
			children, err := translateLogicalChildren(value)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, map[string]any{"must_not": children})
		case "$has_id":
			conditions = append(conditions, map[string]any{"has_id": coerceIDList(value)})
		case "$has_vector":
			conditions = append(conditions, map[string]any{"has_vector": value})
		default:
			fieldConditions, err := translateField(key, value)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, fieldConditions...)
		}
	}
	return conditions, nil
}

func translateLogicalChildren(value any) ([]any, error) {
	var children []map[string]any
	switch v := value.(type) {
	case []any:
		for _, child := range v {
			childMap, ok := child.(map[string]any)
			if !ok {
				return nil, domain.WrapError(domain.ErrUnsupportedFilter, "translate filter",
					fmt.Errorf("logical operand must be an object, got %T", child))
			}
			children = append(children, childMap)
		}
	case map[string]any:
		children = append(children, v)
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedFilter, "translate filter",
			fmt.Errorf("logical operand must be an object or list, got %T", value))
	}

	out := make([]any, 0, len(children))
	for _, child := range children {
		conditions, err := translateExpression(child)
		if err != nil {
			return nil, err
		}
		out = append(out, combineAnd(conditions))
	}
	return out, nil
}

func translateField(field string, value any) ([]any, error) {
	switch v := value.(type) {
	case nil:
		return []any{isNullCondition(field)}, nil
	case []any:
		if len(v) == 0 {
			return []any{isEmptyCondition(field)}, nil
		}
		return []any{matchAnyCondition(field, v)}, nil
	case map[string]any:
		return translateFieldOperators(field, v)
	default:
		return []any{matchValueCondition(field, v)}, nil
	}
}

func translateFieldOperators(field string, ops map[string]any) ([]any, error) {
	conditions := make([]any, 0, len(ops))
	rangeBounds := map[string]any{}

	for op, operand := range ops {
		switch op {
		case "$eq":
			conditions = append(conditions, matchValueCondition(field, operand))
		case "$ne":
			conditions = append(conditions, negate(matchValueCondition(field, operand)))
		case "$gt", "$gte", "$lt", "$lte":
			rangeBounds[strings.TrimPrefix(op, "$")] = operand
		case "$in":
			list, err := operandList(field, op, operand)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, matchAnyCondition(field, list))
		case "$nin":
			list, err := operandList(field, op, operand)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, map[string]any{
				"key":   field,
				"match": map[string]any{"except": list},
			})
		case "$regex":
			pattern, _ := operand.(string)
			conditions = append(conditions, map[string]any{
				"key":   field,
				"match": map[string]any{"text": sanitizeRegex(pattern)},
			})
		case "$exists":
			if truthy(operand) {
				conditions = append(conditions, negate(isNullCondition(field)))
			} else {
				conditions = append(conditions, isNullCondition(field))
			}
		case "$null":
			if truthy(operand) {
				conditions = append(conditions, isNullCondition(field))
			} else {
				conditions = append(conditions, negate(isNullCondition(field)))
			}
		case "$empty":
			if truthy(operand) {
				conditions = append(conditions, isEmptyCondition(field))
			} else {
				conditions = append(conditions, negate(isEmptyCondition(field)))
			}
		case "$count":
			bounds, err := rangeOperand(field, op, operand)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, map[string]any{"key": field, "values_count": bounds})
		case "$datetime":
			bounds, err := rangeOperand(field, op, operand)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, map[string]any{"key": field, "range": bounds})
		case "$geo_box":
			conditions = append(conditions, map[string]any{"key": field, "geo_bounding_box": operand})
		case "$geo_radius":
			conditions = append(conditions, map[string]any{"key": field, "geo_radius": operand})
		case "$geo_polygon":
			conditions = append(conditions, map[string]any{"key": field, "geo_polygon": operand})
		case "$nested":
			nested, ok := operand.(map[string]any)
			if !ok {
				return nil, domain.WrapError(domain.ErrUnsupportedFilter, "translate filter",
					fmt.Errorf("$nested operand on %q must be an object", field))
			}
			nestedFilter, err := TranslateFilter(domain.Filter(nested))
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, map[string]any{
				"nested": map[string]any{"key": field, "filter": nestedFilter},
			})
		default:
			return nil, domain.WrapError(domain.ErrUnsupportedFilter, "translate filter",
				fmt.Errorf("field operator %q on %q", op, field))
		}
	}

	if len(rangeBounds) > 0 {
		conditions = append(conditions, map[string]any{"key": field, "range": rangeBounds})
	}
	return conditions, nil
}

// rangeOperand accepts either {$gte:..,$lte:..} style bounds or a plain
// value treated as an exact count/timestamp.
func rangeOperand(field, op string, operand any) (map[string]any, error) {
	bounds, ok := operand.(map[string]any)
	if !ok {
		return map[string]any{"gte": operand, "lte": operand}, nil
	}
	out := make(map[string]any, len(bounds))
	for k, v := range bounds {
		bound := strings.TrimPrefix(k, "$")
		switch bound {
		case "gt", "gte", "lt", "lte":
			out[bound] = v
		default:
			return nil, domain.WrapError(domain.ErrUnsupportedFilter, "translate filter",
				fmt.Errorf("%s bound %q on %q", op, k, field))
		}
	}
	return out, nil
}

func operandList(field, op string, operand any) ([]any, error) {
	list, ok := operand.([]any)
	if !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedFilter, "translate filter",
			fmt.Errorf("%s operand on %q must be an array", op, field))
	}
	return list, nil
}

func combineAnd(conditions []any) map[string]any {
	if len(conditions) == 1 {
		if m, ok := conditions[0].(map[string]any); ok {
			return m
		}
	}
	return map[string]any{"must": conditions}
}

func isFilterClause(m map[string]any) bool {
	for _, key := range [...]string{"must", "should", "must_not"} {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}

func matchValueCondition(field string, value any) map[string]any {
	return map[string]any{"key": field, "match": map[string]any{"value": value}}
}

func matchAnyCondition(field string, values []any) map[string]any {
	return map[string]any{"key": field, "match": map[string]any{"any": values}}
}

func isNullCondition(field string) map[string]any {
	return map[string]any{"is_null": map[string]any{"key": field}}
}

func isEmptyCondition(field string) map[string]any {
	return map[string]any{"is_empty": map[string]any{"key": field}}
}

func negate(condition map[string]any) map[string]any {
	return map[string]any{"must_not": []any{condition}}
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

var regexMetaPattern = regexp.MustCompile(`[\\.\+\*\?\(\)\|\[\]\{\}\^\$]`)

// sanitizeRegex escapes metacharacters so user-supplied patterns degrade to
// literal text matches instead of arbitrary regex execution.
func sanitizeRegex(pattern string) string {
	return regexMetaPattern.ReplaceAllStringFunc(pattern, func(m string) string {
		return `\` + m
	})
}

func coerceIDList(value any) []any {
	list, ok := value.([]any)
	if !ok {
		return []any{value}
	}
	out := make([]any, 0, len(list))
	for _, id := range list {
		if s, ok := id.(string); ok {
			out = append(out, coercePointID(s))
			continue
		}
		out = append(out, id)
	}
	return out
}
