package chain

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"photo-filters/internal/models"
)

// Applier is the session surface a chain drives.
type Applier interface {
	Apply(ctx context.Context, name string, param *float64) (models.RasterImage, error)
}

// Step names a filter and, for parametric filters, an optional value. A nil
// Param lets the catalog fall back to the filter's default.
type Step struct {
	Filter string
	Param  *float64
}

func (s Step) String() string {
	if s.Param == nil {
		return s.Filter
	}
	return s.Filter + "=" + strconv.FormatFloat(*s.Param, 'g', -1, 64)
}

// ParseStep reads "name" or "name=value".
func ParseStep(text string) (Step, error) {
	name, value, hasValue := strings.Cut(strings.TrimSpace(text), "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return Step{}, fmt.Errorf("step %q has no filter name", text)
	}

	if !hasValue {
		return Step{Filter: name}, nil
	}

	param, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return Step{}, fmt.Errorf("step %q: invalid value: %w", text, err)
	}
	return Step{Filter: name, Param: &param}, nil
}

func ParseSteps(texts []string) ([]Step, error) {
	steps := make([]Step, 0, len(texts))
	for _, text := range texts {
		step, err := ParseStep(text)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

type Chain struct {
	steps []Step
}

func New(steps []Step) *Chain {
	return &Chain{
		steps: append([]Step(nil), steps...),
	}
}

// Execute applies every step in order and returns the last result. It stops
// at the first failure; steps already applied stay applied.
func (c *Chain) Execute(ctx context.Context, session Applier) (models.RasterImage, error) {
	var current models.RasterImage

	for _, step := range c.steps {
		select {
		case <-ctx.Done():
			return models.RasterImage{}, ctx.Err()
		default:
		}

		result, err := session.Apply(ctx, step.Filter, step.Param)
		if err != nil {
			return models.RasterImage{}, fmt.Errorf("step %s failed: %w", step, err)
		}
		current = result
	}

	return current, nil
}
