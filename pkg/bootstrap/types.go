// Package bootstrap loads the design seed the host starts with.
package bootstrap

// SeedBody describes a body and its topology counts.
type SeedBody struct {
	Name     string `json:"name,omitempty"`
	Faces    int    `json:"faces"`
	Edges    int    `json:"edges"`
	Vertices int    `json:"vertices"`
}

// SeedSketch describes a sketch and its line segments ([x1, y1, x2, y2]).
type SeedSketch struct {
	Name  string       `json:"name,omitempty"`
	Plane string       `json:"plane,omitempty"`
	Lines [][4]float64 `json:"lines,omitempty"`
}

// SeedOccurrence places a component (by name) inside its parent.
type SeedOccurrence struct {
	Name      string `json:"name,omitempty"`
	Component string `json:"component"`
}

// SeedJoint describes a joint.
type SeedJoint struct {
	Name string `json:"name,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// SeedParameter describes a user parameter.
type SeedParameter struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Unit       string `json:"unit,omitempty"`
}

// SeedComponent describes one component. Features maps a feature-collection
// kind to feature names; an empty name leaves the feature unnamed.
type SeedComponent struct {
	Name        string              `json:"name"`
	Bodies      []SeedBody          `json:"bodies,omitempty"`
	Sketches    []SeedSketch        `json:"sketches,omitempty"`
	Features    map[string][]string `json:"features,omitempty"`
	Occurrences []SeedOccurrence    `json:"occurrences,omitempty"`
	Joints      []SeedJoint         `json:"joints,omitempty"`
	Parameters  []SeedParameter     `json:"parameters,omitempty"`
}

// DesignSeed is the root of a design seed file. Root names the root component.
type DesignSeed struct {
	Name       string          `json:"name"`
	Version    string          `json:"version"`
	Root       string          `json:"root"`
	Components []SeedComponent `json:"components"`
}
