package stack

import "context"

// StaticResource is an in-memory Resource. It backs tests and the CLI's
// file-defined stacks; the real engine supplies live resources.
type StaticResource struct {
	// ResourceAction and ResourceStatus form the lifecycle phase.
	ResourceAction Action
	ResourceStatus Status

	// Attributes are the resolvable runtime attributes.
	Attributes map[string]interface{}

	// SignalFunc receives watch-triggered signals; nil means signals are
	// accepted and discarded.
	SignalFunc func(ctx context.Context, details map[string]interface{}) error
}

// Phase returns the resource's current lifecycle action and status.
func (r *StaticResource) Phase() (Action, Status) {
	return r.ResourceAction, r.ResourceStatus
}

// Attribute resolves a runtime attribute. Unknown attributes resolve to
// nil rather than an error.
func (r *StaticResource) Attribute(name string) (interface{}, error) {
	return r.Attributes[name], nil
}

// Signal delivers a signal to the resource.
func (r *StaticResource) Signal(ctx context.Context, details map[string]interface{}) error {
	if r.SignalFunc == nil {
		return nil
	}
	return r.SignalFunc(ctx, details)
}

// StaticStack is an in-memory Stack.
type StaticStack struct {
	StackAction Action
	StackStatus Status
	Resources   map[string]*StaticResource
}

// Action returns the stack's current lifecycle action.
func (s *StaticStack) Action() Action {
	return s.StackAction
}

// Status returns the progress of the current lifecycle action.
func (s *StaticStack) Status() Status {
	return s.StackStatus
}

// Resource looks up a resource by its logical name.
func (s *StaticStack) Resource(name string) (Resource, bool) {
	r, ok := s.Resources[name]
	if !ok {
		return nil, false
	}
	return r, true
}

// MapLoader is a Loader over a fixed set of stacks keyed by ID.
type MapLoader map[string]*StaticStack

// Load returns the stack with the given ID, or ErrStackNotFound.
func (m MapLoader) Load(ctx context.Context, stackID string) (Stack, error) {
	s, ok := m[stackID]
	if !ok {
		return nil, ErrStackNotFound
	}
	return s, nil
}
