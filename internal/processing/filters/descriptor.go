package filters

import (
	"fmt"
	"math"
)

// Kind separates filters that take no control value from those that take
// one bounded value.
type Kind int

const (
	ZeroArg Kind = iota
	Parametric
)

func (k Kind) String() string {
	switch k {
	case ZeroArg:
		return "zero-arg"
	case Parametric:
		return "parametric"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Bounds struct {
	Min     float64
	Max     float64
	Default float64
}

// Clamp pins v to [Min, Max].
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Descriptor describes one registered filter. Bounds is only meaningful for
// Parametric descriptors.
type Descriptor struct {
	Name   string
	Kind   Kind
	Bounds Bounds
}

func NewZeroArg(name string) Descriptor {
	return Descriptor{Name: name, Kind: ZeroArg}
}

func NewParametric(name string, lo, hi, def float64) Descriptor {
	return Descriptor{
		Name:   name,
		Kind:   Parametric,
		Bounds: Bounds{Min: lo, Max: hi, Default: def},
	}
}

func (d Descriptor) IsParametric() bool { return d.Kind == Parametric }

// Resolve turns an optional caller value into the value handed to the
// engine. Missing or NaN values take the default; out of range values are
// clamped. Zero-arg filters always resolve to 0.
func (d Descriptor) Resolve(param *float64) float64 {
	switch d.Kind {
	case Parametric:
		if param == nil || math.IsNaN(*param) {
			return d.Bounds.Default
		}
		return d.Bounds.Clamp(*param)
	default:
		return 0
	}
}

func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor has empty name")
	}

	switch d.Kind {
	case ZeroArg:
		return nil
	case Parametric:
		b := d.Bounds
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || math.IsNaN(b.Default) {
			return fmt.Errorf("filter %s: bounds contain NaN", d.Name)
		}
		if b.Min >= b.Max {
			return fmt.Errorf("filter %s: min %g must be below max %g", d.Name, b.Min, b.Max)
		}
		if b.Default < b.Min || b.Default > b.Max {
			return fmt.Errorf("filter %s: default %g outside [%g, %g]", d.Name, b.Default, b.Min, b.Max)
		}
		return nil
	default:
		return fmt.Errorf("filter %s: unknown kind %d", d.Name, int(d.Kind))
	}
}

func (d Descriptor) String() string {
	if d.Kind == Parametric {
		return fmt.Sprintf("%s [%g, %g] default %g", d.Name, d.Bounds.Min, d.Bounds.Max, d.Bounds.Default)
	}
	return d.Name
}

// DefaultDescriptors returns the built-in filter set.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		NewZeroArg("grayscale"),
		NewZeroArg("invert"),
		NewZeroArg("pinkify"),
		NewZeroArg("blueify"),
		NewZeroArg("sepia"),
		NewZeroArg("vintage"),
		NewZeroArg("technicolor"),
		NewParametric("blur", 0, 20, 5),
		NewParametric("brighten", -20, 20, 0),
		NewParametric("contrast", 0, 15, 1),
		NewParametric("vignette", 0.5, 1.5, 0.5),
	}
}

// DefaultAliases maps alternate names accepted by the catalog onto
// registered filters.
func DefaultAliases() map[string]string {
	return map[string]string{
		"pink": "pinkify",
		"blue": "blueify",
	}
}
