// Package stack defines the contracts this core consumes from the stack
// and resource runtime. The core is a caller, never an implementer, of
// these interfaces; the provisioning engine supplies them.
package stack

import (
	"context"
	"errors"
)

// Action is the lifecycle action most recently applied to a stack or
// resource.
type Action string

const (
	ActionCreate   Action = "CREATE"
	ActionUpdate   Action = "UPDATE"
	ActionDelete   Action = "DELETE"
	ActionSuspend  Action = "SUSPEND"
	ActionResume   Action = "RESUME"
	ActionRollback Action = "ROLLBACK"
)

// Status is the progress of the current lifecycle action.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusComplete   Status = "COMPLETE"
	StatusFailed     Status = "FAILED"
)

// ErrStackNotFound is returned by Loader.Load when the stack no longer
// exists, including when it was deleted concurrently.
var ErrStackNotFound = errors.New("stack not found")

// Resource is a single provisioned resource within a stack.
type Resource interface {
	// Phase returns the resource's current lifecycle action and status.
	Phase() (Action, Status)

	// Attribute resolves a runtime attribute of the resource.
	Attribute(name string) (interface{}, error)

	// Signal delivers a watch-triggered signal to the resource.
	Signal(ctx context.Context, details map[string]interface{}) error
}

// Stack is a loaded stack exposing its lifecycle phase and resources.
type Stack interface {
	// Action returns the stack's current lifecycle action.
	Action() Action

	// Status returns the progress of the current lifecycle action.
	Status() Status

	// Resource looks up a resource by its logical name.
	Resource(name string) (Resource, bool)
}

// Loader loads stacks by ID from the stack runtime.
type Loader interface {
	Load(ctx context.Context, stackID string) (Stack, error)
}
