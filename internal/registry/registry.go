// Package registry holds metadata for discoverable background modules and
// answers compatibility, ordering and recommendation queries for the page
// layer.
package registry

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"

	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/strategy"
)

// Intensity buckets how demanding a module is.
type Intensity string

const (
	IntensityLight  Intensity = "light"
	IntensityMedium Intensity = "medium"
	IntensityHeavy  Intensity = "heavy"
)

// Dependency names another module this one needs before loading.
type Dependency struct {
	ID       string `json:"id" yaml:"id"`
	Optional bool   `json:"optional" yaml:"optional"`
}

// Entry describes one registrable background module.
type Entry struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Category         string        `json:"category"`
	Version          string        `json:"version"`
	Load             func() error  `json:"-"`
	MemoryBudgetMB   float64       `json:"memoryBudgetMB"`
	Capabilities     []string      `json:"capabilities"`
	Dependencies     []Dependency  `json:"dependencies,omitempty"`
	Conflicts        []string      `json:"conflicts,omitempty"`
	Tags             []string      `json:"tags,omitempty"`
	Intensity        Intensity     `json:"intensity"`
	PreferredBackend strategy.Kind `json:"preferredBackend,omitempty"`
	Loaded           bool          `json:"loaded"`
}

// Criteria filters and ranks discovery results.
type Criteria struct {
	Category     string
	Capabilities []string
	MaxMemoryMB  float64
	Tags         []string
	Device       models.CapabilitySet
}

// Candidate pairs an entry with its compatibility score.
type Candidate struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}

var semverPattern = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

// Registry is the module catalogue. Registration order is irrelevant except
// that non-optional dependencies must already be present.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]Entry
}

// New constructs an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger, entries: make(map[string]Entry)}
}

// Register validates and stores an entry. Declared conflicts against
// already-registered modules warn but do not reject; missing non-optional
// dependencies reject with a clear error.
func (r *Registry) Register(entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("register module: id is required")
	}
	if entry.Name == "" {
		return fmt.Errorf("register module %s: name is required", entry.ID)
	}
	if entry.Load == nil {
		return fmt.Errorf("register module %s: load function is required", entry.ID)
	}
	if entry.MemoryBudgetMB < 0 {
		return fmt.Errorf("register module %s: memory budget must be non-negative", entry.ID)
	}
	if !semverPattern.MatchString(entry.Version) {
		return fmt.Errorf("register module %s: version %q is not semver", entry.ID, entry.Version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, dep := range entry.Dependencies {
		if dep.Optional {
			continue
		}
		if _, ok := r.entries[dep.ID]; !ok {
			return fmt.Errorf("register module %s: missing dependency %s", entry.ID, dep.ID)
		}
	}
	for _, conflictID := range entry.Conflicts {
		if _, ok := r.entries[conflictID]; ok {
			r.logger.Warn("module conflict declared against registered module",
				slog.String("module", entry.ID),
				slog.String("conflictsWith", conflictID))
		}
	}

	r.entries[entry.ID] = entry
	return nil
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// MarkLoaded records that a module's assets are resident.
func (r *Registry) MarkLoaded(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.Loaded = true
		r.entries[id] = e
	}
}

// Discover filters the catalogue by the criteria and ranks candidates by
// compatibility score, best first.
func (r *Registry) Discover(criteria Criteria) []Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Candidate
	for _, e := range r.entries {
		if criteria.MaxMemoryMB > 0 && e.MemoryBudgetMB > criteria.MaxMemoryMB {
			continue
		}
		if len(criteria.Tags) > 0 && !hasAny(e.Tags, criteria.Tags) {
			continue
		}
		if len(criteria.Capabilities) > 0 && !hasAll(e.Capabilities, criteria.Capabilities) {
			continue
		}
		out = append(out, Candidate{Entry: e, Score: score(e, criteria)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Entry.ID < out[j].Entry.ID
	})
	return out
}

// score computes the compatibility ranking for one entry.
func score(e Entry, criteria Criteria) float64 {
	s := 10.0
	if criteria.Category != "" && e.Category == criteria.Category {
		s += 20
	}
	for _, want := range criteria.Capabilities {
		if contains(e.Capabilities, want) {
			s += 5
		}
	}

	device := criteria.Device
	// Devices without usable WebGL favour modules that render well on
	// Canvas2D.
	if (!device.WebGL || device.LowEnd) && e.PreferredBackend == strategy.KindCanvas2D {
		s += 10
	}
	if device.LowEnd && e.Intensity == IntensityHeavy {
		s -= 15
	}
	if device.Mobile && e.Intensity != IntensityLight {
		s -= 10
	}
	if e.Loaded {
		s += 5
	}
	return s
}

// LoadingOrder returns a dependency-respecting order for the requested
// modules via depth-first post-order traversal. Optional dependencies are
// included when registered. Cycles are an error.
func (r *Registry) LoadingOrder(ids []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)
	var order []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle involving %s", id)
		}
		entry, ok := r.entries[id]
		if !ok {
			return fmt.Errorf("unknown module %s", id)
		}
		state[id] = visiting
		for _, dep := range entry.Dependencies {
			if _, registered := r.entries[dep.ID]; !registered && dep.Optional {
				continue
			}
			if err := visit(dep.ID); err != nil {
				return err
			}
		}
		state[id] = done
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func hasAny(haystack, needles []string) bool {
	for _, n := range needles {
		if contains(haystack, n) {
			return true
		}
	}
	return false
}

func hasAll(haystack, needles []string) bool {
	for _, n := range needles {
		if !contains(haystack, n) {
			return false
		}
	}
	return true
}
