package template

// Canonical engine section names. The rest of the engine addresses template
// sections by these names regardless of the authoring dialect.
const (
	SectionFormatVersion = "FormatVersion"
	SectionDescription   = "Description"
	SectionParameters    = "Parameters"
	SectionMappings      = "Mappings"
	SectionResources     = "Resources"
	SectionOutputs       = "Outputs"
)

// Native section names of the Kiln authoring dialect.
const (
	sectionVersion     = "kiln_template_version"
	sectionDescription = "description"
	sectionParameters  = "parameters"
	sectionResources   = "resources"
	sectionOutputs     = "outputs"

	// sectionUndefined is the target for legacy sections the dialect has no
	// equivalent for; it always reads as an empty mapping.
	sectionUndefined = "__undefined__"
)

// engineToNativeSections translates canonical engine section names into the
// dialect's native names.
var engineToNativeSections = map[string]string{
	SectionFormatVersion: sectionVersion,
	SectionDescription:   sectionDescription,
	SectionParameters:    sectionParameters,
	SectionMappings:      sectionUndefined,
	SectionResources:     sectionResources,
	SectionOutputs:       sectionOutputs,
}

// nativeSections is the set of recognized native section names.
var nativeSections = map[string]bool{
	sectionVersion:     true,
	sectionDescription: true,
	sectionParameters:  true,
	sectionResources:   true,
	sectionOutputs:     true,
	sectionUndefined:   true,
}

// Template is a stack template authored in the Kiln dialect. Sections read
// through Section are translated into the canonical engine representation.
type Template struct {
	raw map[string]interface{}
}

// NewTemplate wraps an already-parsed template mapping.
func NewTemplate(raw map[string]interface{}) *Template {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return &Template{raw: raw}
}

// Raw returns the underlying template mapping as authored.
func (t *Template) Raw() map[string]interface{} {
	return t.raw
}

// Section returns the named section translated into the canonical engine
// representation. The name may be either a canonical engine section name or
// a native dialect name; anything else fails with *InvalidSectionError.
// Section lookup is total over the recognized names: missing sections read
// as an empty mapping, a missing description as "No description".
func (t *Template) Section(name string) (interface{}, error) {
	section := translateKey(name, engineToNativeSections, name)

	if !nativeSections[section] {
		return nil, &InvalidSectionError{Section: name}
	}

	if section == sectionVersion {
		return t.raw[section], nil
	}

	if section == sectionUndefined {
		return map[string]interface{}{}, nil
	}

	var value interface{}
	if section == sectionDescription {
		value = "No description"
	} else {
		value = map[string]interface{}{}
	}
	if raw, ok := t.raw[section]; ok {
		value = raw
	}

	// Parameters, resources and outputs are additionally translated
	// per entry so the rest of the engine sees one field set.
	switch section {
	case sectionParameters:
		return translateParameters(asMapping(value)), nil
	case sectionResources:
		return translateResources(asMapping(value)), nil
	case sectionOutputs:
		return translateOutputs(asMapping(value)), nil
	}

	return value, nil
}

// translateKey looks up value in mapping, returning def when absent.
func translateKey(value string, mapping map[string]string, def string) string {
	if mapped, ok := mapping[value]; ok {
		return mapped
	}
	return def
}

// asMapping coerces a section value to a mapping, reading any other shape
// as empty rather than erroring (lenient-read policy).
func asMapping(value interface{}) map[string]interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}
