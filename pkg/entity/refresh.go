package entity

import (
	"fmt"
	"log/slog"

	"github.com/morezero/cad-bridge/pkg/host"
)

const refreshLogPrefix = "entity:refresh"

// RefreshStats counts what one RefreshFromDesign walk registered.
type RefreshStats struct {
	Components  int `json:"components"`
	Bodies      int `json:"bodies"`
	Sketches    int `json:"sketches"`
	Features    int `json:"features"`
	Occurrences int `json:"occurrences"`
	Joints      int `json:"joints"`
}

// RefreshFromDesign clears the registry and re-registers everything reachable
// from root: the component, its bodies, sketches, features of every known
// collection kind, occurrences (each followed by its nested component) and
// joints. Names stay stable across refreshes of an unchanged design; unnamed
// ids are only stable within one refresh.
func (r *Registry) RefreshFromDesign(root host.Component) (RefreshStats, error) {
	var stats RefreshStats
	if root == nil {
		return stats, fmt.Errorf("%s - nil design root", refreshLogPrefix)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()

	w := &walker{r: r, visited: make(map[host.Component]bool), stats: &stats}
	w.component(root)

	slog.Debug(fmt.Sprintf("%s - refreshed: %d components, %d bodies, %d sketches, %d features, %d occurrences, %d joints",
		refreshLogPrefix, stats.Components, stats.Bodies, stats.Sketches, stats.Features, stats.Occurrences, stats.Joints))
	return stats, nil
}

// walker performs the recursive registration with r.mu already held.
type walker struct {
	r       *Registry
	visited map[host.Component]bool
	stats   *RefreshStats
}

func (w *walker) add(kind Kind, obj interface{}) {
	if obj == nil {
		return
	}
	w.r.registerLocked(kind, w.r.partitions[kind], obj)
}

func (w *walker) component(c host.Component) {
	// A component placed by several occurrences is walked once.
	if w.visited[c] {
		return
	}
	w.visited[c] = true

	w.add(KindComponent, c)
	w.stats.Components++

	for _, b := range c.Bodies() {
		w.add(KindBody, b)
		w.stats.Bodies++
	}
	for _, s := range c.Sketches() {
		w.add(KindSketch, s)
		w.stats.Sketches++
	}
	for _, kind := range host.FeatureCollections {
		for _, f := range c.Features(kind) {
			w.add(KindFeature, f)
			w.stats.Features++
		}
	}
	for _, o := range c.Occurrences() {
		if o == nil {
			continue
		}
		w.add(KindOccurrence, o)
		w.stats.Occurrences++
		if nested := o.Component(); nested != nil {
			w.component(nested)
		}
	}
	for _, j := range c.Joints() {
		w.add(KindJoint, j)
		w.stats.Joints++
	}
}
