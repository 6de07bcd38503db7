// Package host defines what the bridge and the entity registry consume from
// the CAD host: a cross-thread signal primitive and the design object graph.
package host

import "errors"

var (
	// ErrHostStopped is returned when the host main loop is no longer running.
	ErrHostStopped = errors.New("host: main loop stopped")

	// ErrUnknownSignal is returned when firing or removing an unregistered signal.
	ErrUnknownSignal = errors.New("host: unknown signal")
)

// Signaler is the host's callback primitive. Firing a registered signal from
// any goroutine causes its callback to run on the host's main thread.
type Signaler interface {
	RegisterSignal(name string, fn func()) error
	UnregisterSignal(name string) error
	FireSignal(name string) error
}

// Entity is any design object. Name may be empty when the host exposes no
// human-readable name for it.
type Entity interface {
	Name() string
}

// Component is a node of the design tree.
type Component interface {
	Entity
	Bodies() []Entity
	Sketches() []Entity
	// Features returns the features of one feature-collection kind.
	Features(kind string) []Entity
	Occurrences() []Occurrence
	Joints() []Entity
}

// Occurrence is a placed instance of a component inside another component.
type Occurrence interface {
	Entity
	Component() Component
}

// FeatureCollections lists the feature-collection kinds the host knows about,
// in the order they are enumerated.
var FeatureCollections = []string{
	"extrude",
	"revolve",
	"sweep",
	"loft",
	"hole",
	"fillet",
	"chamfer",
	"shell",
	"mirror",
	"rectangular_pattern",
	"circular_pattern",
	"combine",
	"thread",
}
