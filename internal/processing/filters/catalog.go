package filters

import (
	"errors"
	"fmt"
	"strings"

	"photo-filters/internal/commonerr"
	"photo-filters/internal/timing"
)

// Engine performs the pixel work for a named filter. Implementations must be
// deterministic for identical arguments and must not retain input.
type Engine interface {
	Transform(name string, input []byte, param float64) ([]byte, error)
	ContentType() string
}

// Result is the outcome of a successful Apply.
type Result struct {
	Bytes      []byte
	MIME       string
	Descriptor Descriptor
	Param      float64
}

// Catalog is the read-only registry of filters. It resolves parameters and
// dispatches to the engine; it holds no per-call state.
type Catalog struct {
	engine      Engine
	descriptors map[string]Descriptor
	order       []string
	aliases     map[string]string
	tracker     *timing.Tracker
}

func NewCatalog(engine Engine, descriptors []Descriptor, aliases map[string]string) (*Catalog, error) {
	if engine == nil {
		return nil, errors.New("filter catalog requires an engine")
	}

	c := &Catalog{
		engine:      engine,
		descriptors: make(map[string]Descriptor, len(descriptors)),
		aliases:     make(map[string]string, len(aliases)),
	}

	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if d.Name != canonicalName(d.Name) {
			return nil, fmt.Errorf("filter name %q must be lower case without surrounding space", d.Name)
		}
		if _, exists := c.descriptors[d.Name]; exists {
			return nil, fmt.Errorf("filter %s registered twice", d.Name)
		}
		c.descriptors[d.Name] = d
		c.order = append(c.order, d.Name)
	}

	for alias, target := range aliases {
		if alias != canonicalName(alias) {
			return nil, fmt.Errorf("alias %q must be lower case without surrounding space", alias)
		}
		if _, ok := c.descriptors[target]; !ok {
			return nil, fmt.Errorf("alias %s targets unknown filter %s", alias, target)
		}
		if _, clash := c.descriptors[alias]; clash {
			return nil, fmt.Errorf("alias %s shadows a registered filter", alias)
		}
		c.aliases[alias] = target
	}

	return c, nil
}

// NewDefaultCatalog registers DefaultDescriptors and DefaultAliases.
func NewDefaultCatalog(engine Engine) (*Catalog, error) {
	return NewCatalog(engine, DefaultDescriptors(), DefaultAliases())
}

// SetTracker records the duration of each engine call under "filter.<name>".
func (c *Catalog) SetTracker(tracker *timing.Tracker) {
	c.tracker = tracker
}

// Describe looks up a filter or alias. Lookup ignores case and surrounding
// space, so "Blur" and " blur " both name blur; registered names are lower
// case.
func (c *Catalog) Describe(name string) (Descriptor, error) {
	key := canonicalName(name)
	if target, ok := c.aliases[key]; ok {
		key = target
	}

	d, ok := c.descriptors[key]
	if !ok {
		return Descriptor{}, &commonerr.UnknownFilterError{Name: name}
	}
	return d, nil
}

// Names lists zero-arg filters first, then parametric ones, each group in
// registration order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.order))
	for _, kind := range []Kind{ZeroArg, Parametric} {
		for _, name := range c.order {
			if c.descriptors[name].Kind == kind {
				names = append(names, name)
			}
		}
	}
	return names
}

func (c *Catalog) Descriptors() []Descriptor {
	names := c.Names()
	out := make([]Descriptor, len(names))
	for i, name := range names {
		out[i] = c.descriptors[name]
	}
	return out
}

func (c *Catalog) ContentType() string {
	return c.engine.ContentType()
}

// Apply runs the named filter over input. Parametric values are resolved
// with Descriptor.Resolve; engine failures and panics come back as
// *commonerr.TransformEngineError.
func (c *Catalog) Apply(name string, input []byte, param *float64) (Result, error) {
	d, err := c.Describe(name)
	if err != nil {
		return Result{}, err
	}

	resolved := d.Resolve(param)

	out, err := c.transform(d.Name, input, resolved)
	if err != nil {
		return Result{}, &commonerr.TransformEngineError{Filter: d.Name, Param: resolved, Err: err}
	}

	return Result{
		Bytes:      out,
		MIME:       c.engine.ContentType(),
		Descriptor: d,
		Param:      resolved,
	}, nil
}

func (c *Catalog) transform(name string, input []byte, param float64) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()

	if c.tracker != nil {
		span := c.tracker.StartTiming("filter." + name)
		defer c.tracker.EndTiming(span)
	}

	out, err = c.engine.Transform(name, input, param)
	if err == nil && len(out) == 0 {
		err = errors.New("engine returned empty output")
	}
	return out, err
}

func canonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
