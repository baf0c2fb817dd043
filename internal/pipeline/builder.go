// Package pipeline builds clock chains from text expressions and samples them
// into timelines.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tartampluch/go-tempo/internal/config"
	"github.com/tartampluch/go-tempo/pkg/clock"
	"github.com/tartampluch/go-tempo/pkg/clock/easing"
)

// Sentinel errors returned (wrapped) by Parse and Build.
var (
	ErrEmptyPipeline = errors.New(config.ErrEmptyPipeline)
	ErrUnknownStage  = errors.New(config.ErrUnknownStage)
	ErrStageArity    = errors.New(config.ErrStageArity)
	ErrStageArgument = errors.New(config.ErrStageArgument)
	ErrNotNormalized = errors.New(config.ErrNotNormalized)
	ErrUnknownEasing = errors.New(config.ErrUnknownEasing)
)

// Stage is one parsed step of a pipeline expression, e.g. "clamp:0,2".
type Stage struct {
	Name string
	Args []string
}

// String renders the stage back to its canonical text form.
func (s Stage) String() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	return s.Name + config.ArgSeparator + strings.Join(s.Args, config.ArgListSep)
}

// Parse splits an expression such as "scale:2 | normalize:4 | bounce | easeinout"
// into stages. Names are case-insensitive and ignore dashes and underscores.
func Parse(expr string) ([]Stage, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, ErrEmptyPipeline
	}

	parts := strings.Split(expr, config.StageSeparator)
	stages := make([]Stage, 0, len(parts))

	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("stage %d: %w", i+1, ErrEmptyPipeline)
		}

		name, rawArgs, hasArgs := strings.Cut(part, config.ArgSeparator)
		st := Stage{Name: canonicalName(name)}
		if hasArgs {
			for _, a := range strings.Split(rawArgs, config.ArgListSep) {
				st.Args = append(st.Args, strings.TrimSpace(a))
			}
		}
		stages = append(stages, st)
	}
	return stages, nil
}

func canonicalName(name string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(name)))
}

// Build parses expr and wraps src with every stage, innermost first.
//
// The result is a boxed clock: each stage is one of the generic transformers
// of pkg/clock instantiated over clock.Clock or clock.Normalized.
func Build(src clock.Clock, expr string) (clock.Clock, error) {
	stages, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	c, err := Compose(src, stages)
	if err != nil {
		return nil, err
	}

	slog.Debug(config.MsgPipelineBuilt,
		config.LogKeyComponent, config.CompPipeline,
		config.LogKeyExpr, expr,
		config.LogKeyStages, len(stages),
	)
	return c, nil
}

// Compose applies already parsed stages to src.
func Compose(src clock.Clock, stages []Stage) (clock.Clock, error) {
	c := src
	for i, st := range stages {
		next, err := apply(c, st)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i+1, st, err)
		}
		c = next
	}
	return c, nil
}

func apply(c clock.Clock, st Stage) (clock.Clock, error) {
	switch st.Name {
	case config.StageScale:
		v, err := floats(st, 1)
		if err != nil {
			return nil, err
		}
		return clock.Scale(c, v[0]), nil

	case config.StageNegative:
		if _, err := floats(st, 0); err != nil {
			return nil, err
		}
		return clock.Negative(c), nil

	case config.StageOffset:
		v, err := floats(st, 1)
		if err != nil {
			return nil, err
		}
		return clock.Offset(c, v[0]), nil

	case config.StageClamp:
		v, err := floats(st, 2)
		if err != nil {
			return nil, err
		}
		return clock.Clamp(c, v[0], v[1]), nil

	case config.StageMin:
		v, err := floats(st, 1)
		if err != nil {
			return nil, err
		}
		return clock.Min(c, v[0]), nil

	case config.StageMax:
		v, err := floats(st, 1)
		if err != nil {
			return nil, err
		}
		return clock.Max(c, v[0]), nil

	case config.StageNormalize:
		v, err := floats(st, 1)
		if err != nil {
			return nil, err
		}
		return clock.Normalize(c, v[0]), nil

	case config.StageLoop, config.StageBounce:
		return applyCycle(c, st)

	case config.StageEase:
		if len(st.Args) != 1 {
			return nil, fmt.Errorf("%w: want 1, got %d", ErrStageArity, len(st.Args))
		}
		f, ok := easing.Lookup(st.Args[0])
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEasing, st.Args[0])
		}
		return ease(c, f)

	case config.StageLinear, config.StageEaseIn, config.StageEaseOut,
		config.StageEaseInOut, config.StageSine, config.StageSmoothstep:
		if len(st.Args) != 0 {
			return nil, fmt.Errorf("%w: want 0, got %d", ErrStageArity, len(st.Args))
		}
		f, _ := easing.Lookup(st.Name)
		return ease(c, f)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStage, st.Name)
}

// applyCycle handles loop and bounce: with a duration they work on any clock,
// without one they are the normalized [0, 1] variants.
func applyCycle(c clock.Clock, st Stage) (clock.Clock, error) {
	if len(st.Args) == 0 {
		n, ok := c.(clock.Normalized)
		if !ok {
			return nil, ErrNotNormalized
		}
		if st.Name == config.StageLoop {
			return clock.LoopNormalized(n), nil
		}
		return clock.BounceNormalized(n), nil
	}

	v, err := floats(st, 1)
	if err != nil {
		return nil, err
	}
	if st.Name == config.StageLoop {
		return clock.Loop(c, v[0]), nil
	}
	return clock.Bounce(c, v[0]), nil
}

func ease(c clock.Clock, f easing.Func) (clock.Clock, error) {
	n, ok := c.(clock.Normalized)
	if !ok {
		return nil, ErrNotNormalized
	}
	return clock.Ease(n, f)
}

// floats parses exactly n numeric arguments.
func floats(st Stage, n int) ([]float32, error) {
	if len(st.Args) != n {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrStageArity, n, len(st.Args))
	}

	out := make([]float32, n)
	for i, a := range st.Args {
		v, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrStageArgument, a)
		}
		out[i] = float32(v)
	}
	return out, nil
}
