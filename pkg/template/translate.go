package template

import "strings"

// Fixed attribute rename tables. Keys outside a table pass through with
// their original spelling; values are never altered.
var (
	resourceAttrs = map[string]string{
		"type":       "Type",
		"properties": "Properties",
	}

	outputAttrs = map[string]string{
		"description": "Description",
		"value":       "Value",
	}
)

// ConstraintEntry is one normalized constraint value together with the
// description shared by every entry derived from the same constraint.
type ConstraintEntry struct {
	Value       interface{}
	Description interface{}
}

// snakeToCamel converts a snake_case name into the canonical
// capitalized-word spelling: split on underscores, capitalize each token,
// concatenate (min_length -> MinLength).
func snakeToCamel(name string) string {
	if name == "" {
		return ""
	}
	tokens := strings.Split(name, "_")
	for i, token := range tokens {
		if token == "" {
			continue
		}
		tokens[i] = strings.ToUpper(token[:1]) + token[1:]
	}
	return strings.Join(tokens, "")
}

// translateParameters translates a parameters section into the canonical
// representation. Attribute keys are re-spelled, the Type value is
// re-spelled as well, hidden becomes NoEcho, and constraints are expanded
// in place. Parameters that normalize to zero attributes are omitted.
func translateParameters(parameters map[string]interface{}) map[string]interface{} {
	params := map[string]interface{}{}
	for name, raw := range parameters {
		attrs := asMapping(raw)
		param := map[string]interface{}{}
		for key, val := range attrs {
			key = snakeToCamel(key)
			switch key {
			case "Type":
				if s, ok := val.(string); ok {
					val = snakeToCamel(s)
				}
			case "Constraints":
				if list, ok := val.([]interface{}); ok {
					for ck, cv := range translateConstraints(list) {
						param[ck] = cv
					}
				}
				continue
			case "Hidden":
				key = "NoEcho"
			}
			param[key] = val
		}
		if len(param) > 0 {
			params[name] = param
		}
	}
	return params
}

// translateConstraints normalizes an ordered constraint list into a mapping
// from canonical constraint key to the entries derived for it, preserving
// encounter order. Range expands into MinValue/MaxValue and Length into
// MinLength/MaxLength; a zero-valued bound reads as absent and is omitted.
func translateConstraints(constraints []interface{}) map[string][]ConstraintEntry {
	normalized := map[string][]ConstraintEntry{}

	add := func(key string, val, desc interface{}) {
		normalized[key] = append(normalized[key], ConstraintEntry{Value: val, Description: desc})
	}

	addMinMax := func(key string, val, desc interface{}) {
		bounds := asMapping(val)
		if minv := bounds["min"]; !isZeroValue(minv) {
			add("Min"+key, minv, desc)
		}
		if maxv := bounds["max"]; !isZeroValue(maxv) {
			add("Max"+key, maxv, desc)
		}
	}

	for _, raw := range constraints {
		constraint := asMapping(raw)
		desc := constraint["description"]
		for key, val := range constraint {
			key = snakeToCamel(key)
			switch key {
			case "Description":
				// Consumed as the shared description above.
			case "Range":
				addMinMax("Value", val, desc)
			case "Length":
				addMinMax(key, val, desc)
			default:
				add(key, val, desc)
			}
		}
	}

	return normalized
}

// translateResources translates a resources section via the fixed rename
// table.
func translateResources(resources map[string]interface{}) map[string]interface{} {
	return renameEntries(resources, resourceAttrs)
}

// translateOutputs translates an outputs section via the fixed rename
// table.
func translateOutputs(outputs map[string]interface{}) map[string]interface{} {
	return renameEntries(outputs, outputAttrs)
}

// renameEntries rebuilds every entry of a section, renaming attribute keys
// through the given table and passing unmapped keys through unchanged.
func renameEntries(section map[string]interface{}, table map[string]string) map[string]interface{} {
	translated := map[string]interface{}{}
	for name, raw := range section {
		attrs := asMapping(raw)
		entry := make(map[string]interface{}, len(attrs))
		for attr, val := range attrs {
			entry[translateKey(attr, table, attr)] = val
		}
		translated[name] = entry
	}
	return translated
}

// isZeroValue reports whether a constraint bound reads as absent. A bound
// of zero is indistinguishable from "not specified" in the authoring
// dialect and is dropped.
func isZeroValue(v interface{}) bool {
	switch b := v.(type) {
	case nil:
		return true
	case int:
		return b == 0
	case int64:
		return b == 0
	case float64:
		return b == 0
	case string:
		return b == ""
	case bool:
		return !b
	default:
		return false
	}
}
