package template

import "fmt"

// MissingParameterError indicates a get_param reference names a parameter
// absent from the supplied parameter set.
type MissingParameterError struct {
	// Name is the referenced parameter name.
	Name string
}

// Error implements the error interface.
func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("the parameter (%s) was not provided", e.Name)
}

// InvalidTemplateAttributeError indicates a get_attr reference names a
// resource absent from the supplied resource collection.
type InvalidTemplateAttributeError struct {
	// Resource is the referenced resource name.
	Resource string

	// Attribute is the attribute requested from the resource.
	Attribute string
}

// Error implements the error interface.
func (e *InvalidTemplateAttributeError) Error() string {
	return fmt.Sprintf("the resource (%s) has no attribute (%s)", e.Resource, e.Attribute)
}

// InvalidSectionError indicates a section name outside the recognized
// template section enumeration.
type InvalidSectionError struct {
	// Section is the rejected section name.
	Section string
}

// Error implements the error interface.
func (e *InvalidSectionError) Error() string {
	return fmt.Sprintf("%q is not a valid template section", e.Section)
}
