package ops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/morezero/cad-bridge/pkg/bridge"
	"github.com/morezero/cad-bridge/pkg/design"
	"github.com/morezero/cad-bridge/pkg/entity"
)

// maxTopology caps each topology count of create_body. Bodies are built on
// the host thread, which serves every other caller too.
const maxTopology = 10000

// Sketch planes accepted by create_sketch.
var sketchPlanes = map[string]bool{"xy": true, "xz": true, "yz": true}

// component resolves the optional "component" argument, defaulting to the root.
func (h *Handlers) component(args bridge.Args) (*design.Component, error) {
	id, err := args.OptionalString("component", "")
	if err != nil {
		return nil, err
	}
	if id == "" {
		return h.root, nil
	}
	obj, ok := h.registry.GetComponent(id)
	if !ok {
		return nil, bridge.NewHandlerError(bridge.FailureMissing, "component %q not found", id)
	}
	c, ok := obj.(*design.Component)
	if !ok {
		return nil, bridge.NewHandlerError(bridge.FailureInvalid, "entity %q is not an editable component", id)
	}
	return c, nil
}

func (h *Handlers) createBody(_ context.Context, args bridge.Args) (interface{}, error) {
	c, err := h.component(args)
	if err != nil {
		return nil, err
	}
	name, err := args.OptionalString("name", "")
	if err != nil {
		return nil, err
	}
	faces, err := args.OptionalInt("faces", 6)
	if err != nil {
		return nil, err
	}
	edges, err := args.OptionalInt("edges", 12)
	if err != nil {
		return nil, err
	}
	vertices, err := args.OptionalInt("vertices", 8)
	if err != nil {
		return nil, err
	}
	if faces < 0 || edges < 0 || vertices < 0 {
		return nil, bridge.NewHandlerError(bridge.FailureInvalid, "topology counts must not be negative")
	}
	if faces > maxTopology || edges > maxTopology || vertices > maxTopology {
		return nil, bridge.NewHandlerError(bridge.FailureInvalid, "topology counts must not exceed %d", maxTopology)
	}

	body := c.AddBody(strings.TrimSpace(name), faces, edges, vertices)
	id, err := h.registry.RegisterBody(body)
	if err != nil {
		return nil, err
	}
	slog.Debug(fmt.Sprintf("%s - created body %s in %s", logPrefix, id, c.Name()))
	return describe(id, entity.KindBody, body), nil
}

func (h *Handlers) createSketch(_ context.Context, args bridge.Args) (interface{}, error) {
	c, err := h.component(args)
	if err != nil {
		return nil, err
	}
	name, err := args.OptionalString("name", "")
	if err != nil {
		return nil, err
	}
	plane, err := args.OptionalString("plane", "xy")
	if err != nil {
		return nil, err
	}
	plane = strings.ToLower(plane)
	if !sketchPlanes[plane] {
		return nil, bridge.NewHandlerError(bridge.FailureInvalid, "unknown sketch plane %q", plane)
	}

	var lines [][4]float64
	if raw, ok := args["lines"]; ok && raw != nil {
		list, ok := raw.([]interface{})
		if !ok {
			return nil, bridge.NewHandlerError(bridge.FailureInvalid, "argument \"lines\" must be an array")
		}
		for i, l := range list {
			coords, err := lineCoords(l)
			if err != nil {
				return nil, bridge.NewHandlerError(bridge.FailureInvalid, "lines[%d]: %v", i, err)
			}
			lines = append(lines, coords)
		}
	}

	sketch := c.AddSketch(strings.TrimSpace(name), plane)
	for _, l := range lines {
		sketch.AddLine(l[0], l[1], l[2], l[3])
	}

	id, err := h.registry.RegisterSketch(sketch)
	if err != nil {
		return nil, err
	}
	return describe(id, entity.KindSketch, sketch), nil
}

func lineCoords(v interface{}) ([4]float64, error) {
	var out [4]float64
	raw, ok := v.([]interface{})
	if !ok || len(raw) != 4 {
		return out, fmt.Errorf("expected [x1, y1, x2, y2]")
	}
	for i, c := range raw {
		f, err := bridge.Args{"v": c}.Float("v")
		if err != nil {
			return out, fmt.Errorf("coordinate %d is not a number", i)
		}
		out[i] = f
	}
	return out, nil
}

func (h *Handlers) createParameter(_ context.Context, args bridge.Args) (interface{}, error) {
	name, err := args.String("name")
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, bridge.NewHandlerError(bridge.FailureInvalid, "parameter name must not be blank")
	}
	expression, err := args.String("expression")
	if err != nil {
		return nil, err
	}
	unit, err := args.OptionalString("unit", "mm")
	if err != nil {
		return nil, err
	}
	for _, p := range h.root.Parameters() {
		if p.Name() == name {
			return nil, bridge.NewHandlerError(bridge.FailureInvalid, "parameter %q already exists", name)
		}
	}

	p := h.root.AddParameter(name, expression, unit)
	id, err := h.registry.RegisterParameter(p)
	if err != nil {
		return nil, err
	}
	return describe(id, entity.KindParameter, p), nil
}

// body resolves the required "body_id" argument.
func (h *Handlers) body(args bridge.Args) (string, *design.Body, error) {
	id, err := args.String("body_id")
	if err != nil {
		return "", nil, err
	}
	obj, ok := h.registry.GetBody(id)
	if !ok {
		return "", nil, bridge.NewHandlerError(bridge.FailureMissing, "body %q not found", id)
	}
	b, ok := obj.(*design.Body)
	if !ok {
		return "", nil, bridge.NewHandlerError(bridge.FailureInvalid, "entity %q is not a body", id)
	}
	return id, b, nil
}

func (h *Handlers) listFaces(_ context.Context, args bridge.Args) (interface{}, error) {
	id, b, err := h.body(args)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(b.Faces()))
	for _, f := range b.Faces() {
		ids = append(ids, h.registry.RegisterSubEntity(id, "face", f.Index(), f))
	}
	return map[string]interface{}{"body_id": id, "faces": ids}, nil
}

func (h *Handlers) listEdges(_ context.Context, args bridge.Args) (interface{}, error) {
	id, b, err := h.body(args)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(b.Edges()))
	for _, e := range b.Edges() {
		ids = append(ids, h.registry.RegisterSubEntity(id, "edge", e.Index(), e))
	}
	return map[string]interface{}{"body_id": id, "edges": ids}, nil
}

func (h *Handlers) listSketchGeometry(_ context.Context, args bridge.Args) (interface{}, error) {
	id, err := args.String("sketch_id")
	if err != nil {
		return nil, err
	}
	obj, ok := h.registry.GetSketch(id)
	if !ok {
		return nil, bridge.NewHandlerError(bridge.FailureMissing, "sketch %q not found", id)
	}
	s, ok := obj.(*design.Sketch)
	if !ok {
		return nil, bridge.NewHandlerError(bridge.FailureInvalid, "entity %q is not a sketch", id)
	}

	points := make([]string, 0, len(s.Points()))
	for i, p := range s.Points() {
		points = append(points, h.registry.RegisterSubEntity(id, "point", i, p))
	}
	curves := make([]string, 0, len(s.Curves()))
	for i, c := range s.Curves() {
		curves = append(curves, h.registry.RegisterSubEntity(id, "curve", i, c))
	}
	return map[string]interface{}{"sketch_id": id, "points": points, "curves": curves}, nil
}
