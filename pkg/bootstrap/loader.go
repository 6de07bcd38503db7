package bootstrap

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/morezero/cad-bridge/pkg/design"
	"github.com/morezero/cad-bridge/pkg/host"
)

const logPrefix = "bootstrap:loader"

// LoadDesignSeed loads a design seed. It tries paths in order: first any paths
// passed in, then BRIDGE_DESIGN_FILE, then defaults, and falls back to the
// built-in seed when none can be read.
func LoadDesignSeed(paths ...string) (*DesignSeed, error) {
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("BRIDGE_DESIGN_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/design.json", "design.json")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		var seed DesignSeed
		if err := json.Unmarshal(data, &seed); err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse design file %s: %v", logPrefix, p, err))
			continue
		}

		slog.Info(fmt.Sprintf("%s - Loaded design seed from %s", logPrefix, p))
		return &seed, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default design seed", logPrefix))
	return GetDefaultDesignSeed(), nil
}

// GetDefaultDesignSeed returns the built-in seed: a small bracket assembly.
func GetDefaultDesignSeed() *DesignSeed {
	return &DesignSeed{
		Name:    "default-assembly",
		Version: "1.0.0",
		Root:    "Assembly",
		Components: []SeedComponent{
			{
				Name: "Assembly",
				Occurrences: []SeedOccurrence{
					{Name: "Bracket:1", Component: "Bracket"},
					{Name: "Bracket:2", Component: "Bracket"},
					{Name: "Pin:1", Component: "Pin"},
				},
				Joints: []SeedJoint{
					{Name: "Revolute1", Kind: "revolute"},
				},
				Parameters: []SeedParameter{
					{Name: "thickness", Expression: "5 mm", Unit: "mm"},
				},
			},
			{
				Name: "Bracket",
				Bodies: []SeedBody{
					{Name: "Body1", Faces: 10, Edges: 24, Vertices: 16},
				},
				Sketches: []SeedSketch{
					{Name: "Profile", Plane: "xy", Lines: [][4]float64{{0, 0, 40, 0}, {40, 0, 40, 20}, {40, 20, 0, 20}, {0, 20, 0, 0}}},
				},
				Features: map[string][]string{
					"extrude": {"Extrude1"},
					"fillet":  {"Fillet1"},
					"hole":    {""},
				},
			},
			{
				Name: "Pin",
				Bodies: []SeedBody{
					{Name: "Body1", Faces: 3, Edges: 2, Vertices: 0},
				},
				Features: map[string][]string{
					"revolve": {"Revolve1"},
				},
			},
		},
	}
}

// BuildDesign turns a seed into a design tree and returns its root component.
// Occurrences must reference components declared in the same seed.
func BuildDesign(seed *DesignSeed) (*design.Component, error) {
	if seed == nil {
		return nil, fmt.Errorf("%s - nil design seed", logPrefix)
	}

	byName := make(map[string]*design.Component, len(seed.Components))
	for _, sc := range seed.Components {
		if sc.Name == "" {
			return nil, fmt.Errorf("%s - component without a name", logPrefix)
		}
		if _, dup := byName[sc.Name]; dup {
			return nil, fmt.Errorf("%s - duplicate component %q", logPrefix, sc.Name)
		}
		byName[sc.Name] = design.NewComponent(sc.Name)
	}

	known := make(map[string]bool, len(host.FeatureCollections))
	for _, k := range host.FeatureCollections {
		known[k] = true
	}

	for _, sc := range seed.Components {
		c := byName[sc.Name]
		for _, b := range sc.Bodies {
			c.AddBody(b.Name, b.Faces, b.Edges, b.Vertices)
		}
		for _, s := range sc.Sketches {
			sk := c.AddSketch(s.Name, s.Plane)
			for _, l := range s.Lines {
				sk.AddLine(l[0], l[1], l[2], l[3])
			}
		}
		for kind, names := range sc.Features {
			if !known[kind] {
				return nil, fmt.Errorf("%s - component %q: unknown feature kind %q", logPrefix, sc.Name, kind)
			}
			for _, n := range names {
				c.AddFeature(kind, n)
			}
		}
		for _, o := range sc.Occurrences {
			child, ok := byName[o.Component]
			if !ok {
				return nil, fmt.Errorf("%s - component %q: occurrence %q references unknown component %q",
					logPrefix, sc.Name, o.Name, o.Component)
			}
			c.AddOccurrence(o.Name, child)
		}
		for _, j := range sc.Joints {
			c.AddJoint(j.Name, j.Kind)
		}
		for _, p := range sc.Parameters {
			c.AddParameter(p.Name, p.Expression, p.Unit)
		}
	}

	root, ok := byName[seed.Root]
	if !ok {
		return nil, fmt.Errorf("%s - root component %q not declared", logPrefix, seed.Root)
	}
	return root, nil
}
