package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/samber/lo"
	"github.com/tartampluch/go-tempo/internal/config"
	"github.com/tartampluch/go-tempo/internal/validate"
	"github.com/tartampluch/go-tempo/pkg/clock"
)

var (
	// ErrTooManySamples is returned when a request would exceed config.MaxSamples.
	ErrTooManySamples = errors.New("timeline exceeds the sample limit")
	// ErrNonFinite is returned when the pipeline yields NaN or an infinity.
	ErrNonFinite = errors.New(config.ErrNonFinite)
)

// Request describes a sampling run over [From, To] every Step seconds.
type Request struct {
	Expr string  `json:"expr" validate:"required"`
	From float64 `json:"from"`
	To   float64 `json:"to" validate:"gtefield=From"`
	Step float64 `json:"step" validate:"gt=0"`
}

// Sample is the pipeline output at one source time.
type Sample struct {
	Time  float32 `json:"t"`
	Value float32 `json:"v"`
}

// Timeline is the result of a sampling run.
type Timeline struct {
	Expr    string   `json:"expr"`
	From    float64  `json:"from"`
	To      float64  `json:"to"`
	Step    float64  `json:"step"`
	Min     float32  `json:"min"`
	Max     float32  `json:"max"`
	Samples []Sample `json:"samples"`
}

// Sampler renders pipeline expressions into timelines.
type Sampler struct {
	// Validate checks requests. Defaults to validate.Struct.
	Validate func(data any) error
}

// NewSampler creates a Sampler using the shared validator.
func NewSampler() *Sampler {
	return &Sampler{Validate: validate.Struct}
}

// Count returns the number of ticks in [From, To] for the request.
// Ranges too long to count saturate at math.MaxInt32.
func (r Request) Count() int {
	n := r.ticks()
	if !(n <= math.MaxInt32) {
		return math.MaxInt32
	}
	return int(n)
}

// ticks is Count before the int conversion; NaN for non-finite bounds.
func (r Request) ticks() float64 {
	if r.Step <= 0 || r.To < r.From {
		return 0
	}
	// The epsilon keeps To itself when (To-From)/Step is an integer up to rounding.
	return math.Floor((r.To-r.From)/r.Step+1e-9) + 1
}

func (r Request) finite() bool {
	return lo.EveryBy([]float64{r.From, r.To, r.Step}, func(v float64) bool {
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	})
}

// Sample drives a manual clock tick by tick and records the pipeline output.
// The chain is read through a cache refreshed once per tick, the way a game loop reads it.
func (s *Sampler) Sample(ctx context.Context, req Request) (Timeline, error) {
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompSampler,
		config.LogKeyExpr, req.Expr,
	)

	if s.Validate != nil {
		if err := s.Validate(req); err != nil {
			return Timeline{}, fmt.Errorf("%s: %w", config.ErrInvalidRequest, err)
		}
	}

	if !req.finite() {
		return Timeline{}, fmt.Errorf("%s: %s", config.ErrInvalidRequest, config.ErrNonFiniteRange)
	}

	if n := req.ticks(); !(n <= config.MaxSamples) {
		return Timeline{}, fmt.Errorf("%w: %g > %d", ErrTooManySamples, n, config.MaxSamples)
	}
	count := req.Count()

	log.DebugContext(ctx, config.MsgSampleStarted,
		config.LogKeyFrom, req.From,
		config.LogKeyTo, req.To,
		config.LogKeyStep, req.Step,
		config.LogKeyCount, count,
	)

	source := clock.NewManual()
	source.Set(float32(req.From))

	chain, err := Build(source, req.Expr)
	if err != nil {
		return Timeline{}, err
	}

	frame, err := clock.NewCached(chain)
	if err != nil {
		return Timeline{}, err
	}

	samples := make([]Sample, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return Timeline{}, err
		}

		t := float32(req.From + float64(i)*req.Step)
		source.Set(t)
		frame.Update()

		v := frame.GetTime()
		if !isFinite(t) || !isFinite(v) {
			return Timeline{}, fmt.Errorf("%w: t=%g v=%g", ErrNonFinite, t, v)
		}
		samples = append(samples, Sample{Time: t, Value: v})
	}

	tl := Timeline{
		Expr:    req.Expr,
		From:    req.From,
		To:      req.To,
		Step:    req.Step,
		Samples: samples,
	}
	values := lo.Map(samples, func(smp Sample, _ int) float32 { return smp.Value })
	tl.Min = lo.Min(values)
	tl.Max = lo.Max(values)

	log.Debug(config.MsgSampleDone,
		config.LogKeyCount, len(samples),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return tl, nil
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
