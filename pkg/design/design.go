// Package design is an in-memory design document that implements the host
// design graph. Everything in it is owned by the host thread: callers outside
// a bridge handler must not mutate or walk it concurrently.
package design

import (
	"github.com/morezero/cad-bridge/pkg/host"
)

// Component is a node of the design tree.
type Component struct {
	name        string
	bodies      []*Body
	sketches    []*Sketch
	features    map[string][]*Feature
	occurrences []*Occurrence
	joints      []*Joint
	parameters  []*Parameter
}

// NewComponent creates an empty component.
func NewComponent(name string) *Component {
	return &Component{name: name, features: make(map[string][]*Feature)}
}

func (c *Component) Name() string { return c.name }

// Bodies returns the component's bodies.
func (c *Component) Bodies() []host.Entity {
	out := make([]host.Entity, len(c.bodies))
	for i, b := range c.bodies {
		out[i] = b
	}
	return out
}

// Sketches returns the component's sketches.
func (c *Component) Sketches() []host.Entity {
	out := make([]host.Entity, len(c.sketches))
	for i, s := range c.sketches {
		out[i] = s
	}
	return out
}

// Features returns the features of one collection kind.
func (c *Component) Features(kind string) []host.Entity {
	fs := c.features[kind]
	out := make([]host.Entity, len(fs))
	for i, f := range fs {
		out[i] = f
	}
	return out
}

// Occurrences returns the component's child occurrences.
func (c *Component) Occurrences() []host.Occurrence {
	out := make([]host.Occurrence, len(c.occurrences))
	for i, o := range c.occurrences {
		out[i] = o
	}
	return out
}

// Joints returns the component's joints.
func (c *Component) Joints() []host.Entity {
	out := make([]host.Entity, len(c.joints))
	for i, j := range c.joints {
		out[i] = j
	}
	return out
}

// Parameters returns the component's user parameters.
func (c *Component) Parameters() []*Parameter {
	return append([]*Parameter(nil), c.parameters...)
}

// AddBody appends a body with the given topology counts.
func (c *Component) AddBody(name string, faces, edges, vertices int) *Body {
	b := &Body{name: name}
	for i := 0; i < faces; i++ {
		b.faces = append(b.faces, &Face{index: i})
	}
	for i := 0; i < edges; i++ {
		b.edges = append(b.edges, &Edge{index: i})
	}
	for i := 0; i < vertices; i++ {
		b.vertices = append(b.vertices, &Vertex{index: i})
	}
	c.bodies = append(c.bodies, b)
	return b
}

// AddSketch appends a sketch on the named plane.
func (c *Component) AddSketch(name, plane string) *Sketch {
	s := &Sketch{name: name, plane: plane}
	c.sketches = append(c.sketches, s)
	return s
}

// AddFeature appends a feature to the kind collection.
func (c *Component) AddFeature(kind, name string) *Feature {
	f := &Feature{name: name, kind: kind}
	c.features[kind] = append(c.features[kind], f)
	return f
}

// AddOccurrence places child inside c.
func (c *Component) AddOccurrence(name string, child *Component) *Occurrence {
	o := &Occurrence{name: name, component: child}
	c.occurrences = append(c.occurrences, o)
	return o
}

// AddJoint appends a joint between two occurrences.
func (c *Component) AddJoint(name, kind string) *Joint {
	j := &Joint{name: name, kind: kind}
	c.joints = append(c.joints, j)
	return j
}

// AddParameter appends a user parameter.
func (c *Component) AddParameter(name, expression, unit string) *Parameter {
	p := &Parameter{name: name, Expression: expression, Unit: unit}
	c.parameters = append(c.parameters, p)
	return p
}

// Body is a solid or surface body.
type Body struct {
	name     string
	faces    []*Face
	edges    []*Edge
	vertices []*Vertex
}

func (b *Body) Name() string { return b.name }

// Faces returns the body's faces in index order.
func (b *Body) Faces() []*Face { return b.faces }

// Edges returns the body's edges in index order.
func (b *Body) Edges() []*Edge { return b.edges }

// Vertices returns the body's vertices in index order.
func (b *Body) Vertices() []*Vertex { return b.vertices }

// Face, Edge and Vertex are body topology; they carry no name of their own.
type Face struct{ index int }

type Edge struct{ index int }

type Vertex struct{ index int }

func (f *Face) Index() int { return f.index }

func (e *Edge) Index() int { return e.index }

func (v *Vertex) Index() int { return v.index }

// Sketch is a 2D sketch on a construction plane.
type Sketch struct {
	name   string
	plane  string
	points []*SketchPoint
	curves []*SketchCurve
}

func (s *Sketch) Name() string { return s.name }
func (s *Sketch) Plane() string { return s.plane }

// Points returns the sketch points.
func (s *Sketch) Points() []*SketchPoint { return s.points }

// Curves returns the sketch curves.
func (s *Sketch) Curves() []*SketchCurve { return s.curves }

// AddPoint appends a sketch point.
func (s *Sketch) AddPoint(x, y float64) *SketchPoint {
	p := &SketchPoint{X: x, Y: y}
	s.points = append(s.points, p)
	return p
}

// AddLine appends a line curve between two new points.
func (s *Sketch) AddLine(x1, y1, x2, y2 float64) *SketchCurve {
	c := &SketchCurve{Kind: "line", Start: s.AddPoint(x1, y1), End: s.AddPoint(x2, y2)}
	s.curves = append(s.curves, c)
	return c
}

// SketchPoint is a point in sketch space.
type SketchPoint struct {
	X, Y float64
}

// SketchCurve is a sketch curve.
type SketchCurve struct {
	Kind       string
	Start, End *SketchPoint
}

// Feature is a timeline feature.
type Feature struct {
	name string
	kind string
}

func (f *Feature) Name() string { return f.name }
func (f *Feature) Kind() string { return f.kind }

// Occurrence is a placed instance of a component.
type Occurrence struct {
	name      string
	component *Component
}

func (o *Occurrence) Name() string { return o.name }

// Component returns the occurrence's nested component.
func (o *Occurrence) Component() host.Component {
	if o.component == nil {
		return nil
	}
	return o.component
}

// Joint connects two occurrences.
type Joint struct {
	name string
	kind string
}

func (j *Joint) Name() string { return j.name }
func (j *Joint) Kind() string { return j.kind }

// Parameter is a named user parameter.
type Parameter struct {
	name       string
	Expression string
	Unit       string
}

func (p *Parameter) Name() string { return p.name }
