// Package ops holds the operation handlers the bridge runs on the host thread.
// Handlers translate between stable entity ids and live design objects.
package ops

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/cad-bridge/pkg/bridge"
	"github.com/morezero/cad-bridge/pkg/design"
	"github.com/morezero/cad-bridge/pkg/entity"
)

const logPrefix = "ops:ops"

// Operation names.
const (
	OpPing               = "ping"
	OpEcho               = "echo"
	OpGetDesignInfo      = "get_design_info"
	OpRefreshEntities    = "refresh_entities"
	OpClearEntities      = "clear_entities"
	OpResolveEntity      = "resolve_entity"
	OpListEntities       = "list_entities"
	OpCreateBody         = "create_body"
	OpCreateSketch       = "create_sketch"
	OpCreateParameter    = "create_parameter"
	OpListFaces          = "list_faces"
	OpListEdges          = "list_edges"
	OpListSketchGeometry = "list_sketch_geometry"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Registry *entity.Registry
	Root     *design.Component
}

// Handlers serves the operations against one design document.
type Handlers struct {
	registry *entity.Registry
	root     *design.Component
}

// NewHandlers creates Handlers.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{registry: deps.Registry, root: deps.Root}
}

// Register binds every operation on b.
func Register(b *bridge.Bridge, deps Deps) (*Handlers, error) {
	h := NewHandlers(deps)
	for name, fn := range h.table() {
		if err := b.RegisterHandler(name, fn); err != nil {
			return nil, fmt.Errorf("%s - register %s: %w", logPrefix, name, err)
		}
	}
	slog.Info(fmt.Sprintf("%s - Registered %d operations", logPrefix, len(h.table())))
	return h, nil
}

func (h *Handlers) table() map[string]bridge.HandlerFunc {
	return map[string]bridge.HandlerFunc{
		OpPing:               h.ping,
		OpEcho:               h.echo,
		OpGetDesignInfo:      h.getDesignInfo,
		OpRefreshEntities:    h.refreshEntities,
		OpClearEntities:      h.clearEntities,
		OpResolveEntity:      h.resolveEntity,
		OpListEntities:       h.listEntities,
		OpCreateBody:         h.createBody,
		OpCreateSketch:       h.createSketch,
		OpCreateParameter:    h.createParameter,
		OpListFaces:          h.listFaces,
		OpListEdges:          h.listEdges,
		OpListSketchGeometry: h.listSketchGeometry,
	}
}

func (h *Handlers) ping(_ context.Context, _ bridge.Args) (interface{}, error) {
	return map[string]interface{}{
		"pong": true,
		"time": time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

func (h *Handlers) echo(_ context.Context, args bridge.Args) (interface{}, error) {
	return map[string]interface{}(args), nil
}

func (h *Handlers) getDesignInfo(_ context.Context, _ bridge.Args) (interface{}, error) {
	rootID, err := h.registry.RegisterComponent(h.root)
	if err != nil {
		return nil, err
	}
	stats := h.registry.Stats()
	registered := make(map[string]int, len(stats))
	for k, n := range stats {
		registered[string(k)] = n
	}
	return map[string]interface{}{
		"root":        rootID,
		"name":        h.root.Name(),
		"bodies":      len(h.root.Bodies()),
		"sketches":    len(h.root.Sketches()),
		"occurrences": len(h.root.Occurrences()),
		"joints":      len(h.root.Joints()),
		"parameters":  len(h.root.Parameters()),
		"registered":  registered,
	}, nil
}

func (h *Handlers) refreshEntities(_ context.Context, _ bridge.Args) (interface{}, error) {
	stats, err := h.registry.RefreshFromDesign(h.root)
	if err != nil {
		return nil, err
	}
	for _, p := range h.root.Parameters() {
		if _, err := h.registry.RegisterParameter(p); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (h *Handlers) clearEntities(_ context.Context, _ bridge.Args) (interface{}, error) {
	h.registry.Clear()
	return map[string]interface{}{"cleared": true}, nil
}

func (h *Handlers) resolveEntity(_ context.Context, args bridge.Args) (interface{}, error) {
	id, err := args.String("id")
	if err != nil {
		return nil, err
	}
	obj, kind, ok := h.registry.Resolve(id)
	if !ok {
		return nil, bridge.NewHandlerError(bridge.FailureMissing, "entity %q not found", id)
	}
	return describe(id, kind, obj), nil
}

func (h *Handlers) listEntities(_ context.Context, args bridge.Args) (interface{}, error) {
	kindArg, err := args.String("kind")
	if err != nil {
		return nil, err
	}
	kind := entity.Kind(kindArg)
	if !validKind(kind) {
		return nil, bridge.NewHandlerError(bridge.FailureInvalid, "unknown entity kind %q", kindArg)
	}
	return map[string]interface{}{
		"kind": kindArg,
		"ids":  h.registry.IDs(kind),
	}, nil
}

func validKind(kind entity.Kind) bool {
	for _, k := range entity.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// describe renders a registered object for a response.
func describe(id string, kind entity.Kind, obj interface{}) map[string]interface{} {
	out := map[string]interface{}{"id": id, "kind": string(kind)}
	if named, ok := obj.(interface{ Name() string }); ok && named.Name() != "" {
		out["name"] = named.Name()
	}
	switch v := obj.(type) {
	case *design.Body:
		out["faces"] = len(v.Faces())
		out["edges"] = len(v.Edges())
		out["vertices"] = len(v.Vertices())
	case *design.Sketch:
		out["plane"] = v.Plane()
		out["curves"] = len(v.Curves())
	case *design.Feature:
		out["feature_kind"] = v.Kind()
	case *design.Joint:
		out["joint_kind"] = v.Kind()
	case *design.Parameter:
		out["expression"] = v.Expression
		out["unit"] = v.Unit
	case *design.Face, *design.Edge, *design.Vertex:
		out["index"] = v.(interface{ Index() int }).Index()
	case *design.SketchPoint:
		out["x"], out["y"] = v.X, v.Y
	case *design.SketchCurve:
		out["curve_kind"] = v.Kind
	}
	return out
}
