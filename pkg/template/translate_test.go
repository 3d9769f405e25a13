package template

import (
	"reflect"
	"testing"
)

func TestSnakeToCamel(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"string":         "String",
		"min_length":     "MinLength",
		"allowed_values": "AllowedValues",
		"comma_delimited_list": "CommaDelimitedList",
		"already":        "Already",
	}

	for in, want := range cases {
		if got := snakeToCamel(in); got != want {
			t.Errorf("snakeToCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func parameterSection(t *testing.T, params map[string]interface{}) map[string]interface{} {
	t.Helper()
	tmpl := NewTemplate(map[string]interface{}{"parameters": params})
	section, err := tmpl.Section(SectionParameters)
	if err != nil {
		t.Fatalf("failed to read parameters: %v", err)
	}
	return section.(map[string]interface{})
}

func TestTranslateParameters_AttributeRespelling(t *testing.T) {
	params := parameterSection(t, map[string]interface{}{
		"key_name": map[string]interface{}{
			"type":        "string",
			"description": "SSH key",
			"default":     "heat_key",
		},
	})

	want := map[string]interface{}{
		"key_name": map[string]interface{}{
			"Type":        "String",
			"Description": "SSH key",
			"Default":     "heat_key",
		},
	}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("expected %#v, got %#v", want, params)
	}
}

func TestTranslateParameters_HiddenBecomesNoEcho(t *testing.T) {
	params := parameterSection(t, map[string]interface{}{
		"password": map[string]interface{}{
			"type":   "string",
			"hidden": true,
		},
	})

	param := params["password"].(map[string]interface{})
	if param["NoEcho"] != true {
		t.Errorf("expected NoEcho true, got %#v", param)
	}
	if _, ok := param["Hidden"]; ok {
		t.Error("Hidden must not survive translation")
	}
}

func TestTranslateParameters_EmptyParameterOmitted(t *testing.T) {
	params := parameterSection(t, map[string]interface{}{
		"empty":  map[string]interface{}{},
		"scalar": "not-a-mapping",
	})

	if len(params) != 0 {
		t.Errorf("expected parameters with no attributes to be omitted, got %#v", params)
	}
}

func TestTranslateConstraints_RangeExpansion(t *testing.T) {
	normalized := translateConstraints([]interface{}{
		map[string]interface{}{
			"range":       map[string]interface{}{"min": 1, "max": 10},
			"description": "between one and ten",
		},
	})

	minEntries := normalized["MinValue"]
	maxEntries := normalized["MaxValue"]
	if len(minEntries) != 1 || len(maxEntries) != 1 {
		t.Fatalf("expected one MinValue and one MaxValue entry, got %#v", normalized)
	}
	if minEntries[0].Value != 1 || maxEntries[0].Value != 10 {
		t.Errorf("unexpected bounds: %#v", normalized)
	}
	if minEntries[0].Description != "between one and ten" {
		t.Errorf("expected the shared description, got %#v", minEntries[0].Description)
	}
}

func TestTranslateConstraints_ZeroBoundReadsAsAbsent(t *testing.T) {
	// A bound of zero is indistinguishable from an unspecified bound and
	// is dropped from the canonical form.
	normalized := translateConstraints([]interface{}{
		map[string]interface{}{
			"range": map[string]interface{}{"min": 0, "max": 10},
		},
	})

	if _, ok := normalized["MinValue"]; ok {
		t.Errorf("expected zero min to be dropped, got %#v", normalized)
	}
	if len(normalized["MaxValue"]) != 1 {
		t.Errorf("expected MaxValue to survive, got %#v", normalized)
	}
}

func TestTranslateConstraints_LengthExpansion(t *testing.T) {
	normalized := translateConstraints([]interface{}{
		map[string]interface{}{
			"length": map[string]interface{}{"min": 1, "max": 16},
		},
	})

	if len(normalized["MinLength"]) != 1 || len(normalized["MaxLength"]) != 1 {
		t.Errorf("expected MinLength and MaxLength entries, got %#v", normalized)
	}
}

func TestTranslateConstraints_PassthroughConstraints(t *testing.T) {
	normalized := translateConstraints([]interface{}{
		map[string]interface{}{
			"allowed_values": []interface{}{"m1.small", "m1.large"},
		},
		map[string]interface{}{
			"allowed_pattern": "[A-Za-z0-9]+",
			"description":     "alphanumeric",
		},
	})

	if len(normalized["AllowedValues"]) != 1 {
		t.Errorf("expected AllowedValues entry, got %#v", normalized)
	}
	pattern := normalized["AllowedPattern"]
	if len(pattern) != 1 || pattern[0].Description != "alphanumeric" {
		t.Errorf("expected described AllowedPattern entry, got %#v", normalized)
	}
}

func TestTranslateConstraints_RepeatedConstraintsMerge(t *testing.T) {
	// Two range constraints contribute entries under the same key in
	// encounter order.
	normalized := translateConstraints([]interface{}{
		map[string]interface{}{
			"range":       map[string]interface{}{"max": 10},
			"description": "first",
		},
		map[string]interface{}{
			"range":       map[string]interface{}{"max": 5},
			"description": "second",
		},
	})

	entries := normalized["MaxValue"]
	if len(entries) != 2 {
		t.Fatalf("expected two MaxValue entries, got %#v", entries)
	}
	if entries[0].Description != "first" || entries[1].Description != "second" {
		t.Errorf("expected encounter order to be preserved, got %#v", entries)
	}
}

func TestTranslateParameters_TypeValueRespelled(t *testing.T) {
	params := parameterSection(t, map[string]interface{}{
		"subnets": map[string]interface{}{
			"type": "comma_delimited_list",
		},
	})

	param := params["subnets"].(map[string]interface{})
	if param["Type"] != "CommaDelimitedList" {
		t.Errorf("expected respelled type, got %#v", param["Type"])
	}
}
