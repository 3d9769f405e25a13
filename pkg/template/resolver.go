package template

import (
	"github.com/kilnstack/kiln/pkg/stack"
)

// MatchFunc reports whether a single-entry mapping with the given key and
// value is a reference that should be substituted.
type MatchFunc func(key string, value interface{}) bool

// HandleFunc produces the replacement value for a matched reference.
type HandleFunc func(value interface{}) (interface{}, error)

// Resolve walks node recursively and substitutes references. A mapping with
// exactly one entry whose key/value satisfy match is replaced by the result
// of handle; other mappings and sequences are rebuilt with their values
// resolved, and scalars pass through unchanged. Templates are assumed to be
// acyclic finite trees.
func Resolve(match MatchFunc, handle HandleFunc, node interface{}) (interface{}, error) {
	switch n := node.(type) {
	case map[string]interface{}:
		if len(n) == 1 {
			for key, value := range n {
				if match(key, value) {
					return handle(value)
				}
			}
		}
		resolved := make(map[string]interface{}, len(n))
		for key, value := range n {
			rv, err := Resolve(match, handle, value)
			if err != nil {
				return nil, err
			}
			resolved[key] = rv
		}
		return resolved, nil
	case []interface{}:
		resolved := make([]interface{}, len(n))
		for i, value := range n {
			rv, err := Resolve(match, handle, value)
			if err != nil {
				return nil, err
			}
			resolved[i] = rv
		}
		return resolved, nil
	default:
		return node, nil
	}
}

// ResolveParams substitutes constructs of the form {"get_param": "name"}
// with the corresponding value from params. Referencing a parameter absent
// from params fails with *MissingParameterError; references are never
// silently defaulted.
func ResolveParams(node interface{}, params map[string]interface{}) (interface{}, error) {
	match := func(key string, value interface{}) bool {
		if key != "get_param" {
			return false
		}
		_, ok := value.(string)
		return ok
	}

	handle := func(ref interface{}) (interface{}, error) {
		name := ref.(string)
		value, ok := params[name]
		if !ok {
			return nil, &MissingParameterError{Name: name}
		}
		return value, nil
	}

	return Resolve(match, handle, node)
}

// ResolveAttributes substitutes constructs of the form
// {"get_attr": ["resource", "attribute"]} with the resource's current
// attribute value. An unknown resource fails with
// *InvalidTemplateAttributeError. Attributes are only meaningful once the
// resource has begun or finished being created or updated; in any other
// phase the reference resolves to an absent value rather than an error.
func ResolveAttributes(node interface{}, resources map[string]stack.Resource) (interface{}, error) {
	match := func(key string, value interface{}) bool {
		if key != "get_attr" {
			return false
		}
		args, ok := value.([]interface{})
		if !ok || len(args) != 2 {
			return false
		}
		if _, ok := args[0].(string); !ok {
			return false
		}
		_, ok = args[1].(string)
		return ok
	}

	handle := func(ref interface{}) (interface{}, error) {
		args := ref.([]interface{})
		name := args[0].(string)
		attr := args[1].(string)

		resource, ok := resources[name]
		if !ok {
			return nil, &InvalidTemplateAttributeError{Resource: name, Attribute: attr}
		}
		if !attributeReady(resource) {
			return nil, nil
		}
		return resource.Attribute(attr)
	}

	return Resolve(match, handle, node)
}

// attributeReady reports whether the resource phase permits attribute
// resolution: create or update, in progress or complete.
func attributeReady(r stack.Resource) bool {
	action, status := r.Phase()
	if action != stack.ActionCreate && action != stack.ActionUpdate {
		return false
	}
	return status == stack.StatusInProgress || status == stack.StatusComplete
}
