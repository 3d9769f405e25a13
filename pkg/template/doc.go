// Package template implements the Kiln template dialect: parsing,
// translation into the canonical engine representation, and resolution of
// intra-template references (get_param, get_attr) against live parameter
// values and resource state.
package template
