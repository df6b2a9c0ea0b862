package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/praetorian-inc/vantage/pkg/types"
)

// ErrDuplicateCollector is returned when two collectors share a name.
var ErrDuplicateCollector = errors.New("duplicate collector name")

// ErrInvalidCatalogue wraps every registration failure reported by Default.
var ErrInvalidCatalogue = errors.New("invalid collector catalogue")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Catalogue is the set of collectors known to the process. It is filled at
// startup and only read afterwards.
type Catalogue struct {
	mu        sync.RWMutex
	byName    map[string]types.Collector // lower-cased name -> collector
	ordered   []types.Collector          // sorted by lower-cased name
	hierarchy map[types.Group][]string   // group -> names
}

func NewCatalogue() *Catalogue {
	return &Catalogue{
		byName:    make(map[string]types.Collector),
		hierarchy: make(map[types.Group][]string),
	}
}

// Add validates c and inserts it. Names are compared case-insensitively.
func (cat *Catalogue) Add(c types.Collector) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid collector %q: %w", c.Name, err)
	}

	cat.mu.Lock()
	defer cat.mu.Unlock()

	key := strings.ToLower(c.Name)
	if existing, exists := cat.byName[key]; exists {
		return fmt.Errorf("%w: %q conflicts with %q", ErrDuplicateCollector, c.Name, existing.Name)
	}
	c.Groups = slices.Clone(c.Groups)
	cat.byName[key] = c

	i, _ := slices.BinarySearchFunc(cat.ordered, key, func(e types.Collector, k string) int {
		return strings.Compare(strings.ToLower(e.Name), k)
	})
	cat.ordered = slices.Insert(cat.ordered, i, c)

	for _, g := range c.Groups {
		names := cat.hierarchy[g]
		j, _ := slices.BinarySearchFunc(names, key, func(e, k string) int {
			return strings.Compare(strings.ToLower(e), k)
		})
		cat.hierarchy[g] = slices.Insert(names, j, c.Name)
	}
	return nil
}

// FindByName returns the collector with the given name, ignoring case.
func (cat *Catalogue) FindByName(name string) (types.Collector, bool) {
	cat.mu.RLock()
	defer cat.mu.RUnlock()

	c, ok := cat.byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// FindByGroup returns every collector tagged with g, in catalogue order.
func (cat *Catalogue) FindByGroup(g types.Group) []types.Collector {
	cat.mu.RLock()
	defer cat.mu.RUnlock()

	var out []types.Collector
	for _, c := range cat.ordered {
		if c.InGroup(g) {
			out = append(out, c)
		}
	}
	return out
}

// All returns every collector in catalogue order.
func (cat *Catalogue) All() []types.Collector {
	cat.mu.RLock()
	defer cat.mu.RUnlock()

	return slices.Clone(cat.ordered)
}

func (cat *Catalogue) Len() int {
	cat.mu.RLock()
	defer cat.mu.RUnlock()

	return len(cat.ordered)
}

// Hierarchy exposes group membership for CLI listing. The returned map is a copy.
func (cat *Catalogue) Hierarchy() map[types.Group][]string {
	cat.mu.RLock()
	defer cat.mu.RUnlock()

	result := make(map[types.Group][]string, len(cat.hierarchy))
	for g, names := range cat.hierarchy {
		result[g] = slices.Clone(names)
	}
	return result
}

var (
	defaultCatalogue = NewCatalogue()
	registerErrs     []error
	registerMu       sync.Mutex
)

// Register adds a collector to the process-wide catalogue. It is meant to be
// called from init functions; failures are reported by Default.
func Register(c types.Collector) {
	if err := defaultCatalogue.Add(c); err != nil {
		registerMu.Lock()
		registerErrs = append(registerErrs, err)
		registerMu.Unlock()
	}
}

// Default returns the process-wide catalogue, or every registration error
// when any collector failed to register. There is no partial catalogue.
func Default() (*Catalogue, error) {
	registerMu.Lock()
	defer registerMu.Unlock()

	if len(registerErrs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalogue, errors.Join(registerErrs...))
	}
	return defaultCatalogue, nil
}
