package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-tempo/internal/pipeline"
	"github.com/tartampluch/go-tempo/pkg/clock"
)

const delta = 1e-5

func TestParse(t *testing.T) {
	stages, err := pipeline.Parse(" Scale:2 | clamp: 0 , 1.5 |Ease-In-Out ")
	require.NoError(t, err)

	require.Len(t, stages, 3)
	assert.Equal(t, pipeline.Stage{Name: "scale", Args: []string{"2"}}, stages[0])
	assert.Equal(t, pipeline.Stage{Name: "clamp", Args: []string{"0", "1.5"}}, stages[1])
	assert.Equal(t, pipeline.Stage{Name: "easeinout"}, stages[2])
	assert.Equal(t, "clamp:0,1.5", stages[1].String())
}

func TestParse_Empty(t *testing.T) {
	_, err := pipeline.Parse("   ")
	assert.ErrorIs(t, err, pipeline.ErrEmptyPipeline)

	_, err = pipeline.Parse("scale:2||bounce:1")
	assert.ErrorIs(t, err, pipeline.ErrEmptyPipeline)
}

// TestBuild_MatchesStaticChain compares boxed chains against the same chain
// written with the generic functions.
func TestBuild_MatchesStaticChain(t *testing.T) {
	m := clock.NewManual()

	tests := []struct {
		name   string
		expr   string
		static clock.Clock
	}{
		{"Scale", "scale:2", clock.Scale(m, 2)},
		{"Negative", "negative", clock.Negative(m)},
		{"Offset", "offset:-0.5", clock.Offset(m, -0.5)},
		{"Loop", "loop:1.5", clock.Loop(m, 1.5)},
		{"Clamp", "clamp:0.5,2", clock.Clamp(m, 0.5, 2)},
		{"Min", "min:1", clock.Min(m, 1)},
		{"Max", "max:1", clock.Max(m, 1)},
		{"Bounce", "bounce:2", clock.Bounce(m, 2)},
		{"Normalize", "normalize:4", clock.Normalize(m, 4)},
		{"Normalized loop", "normalize:2|loop", clock.LoopNormalized(clock.Normalize(m, 2))},
		{"Normalized bounce", "normalize:2|bounce", clock.BounceNormalized(clock.Normalize(m, 2))},
		{"Ease by name", "normalize:4|ease:smoothstep", clock.Smoothstep(clock.Normalize(m, 4))},
		{"Eased ping-pong", "scale:2|normalize:4|bounce|easeinout",
			clock.EaseInOut(clock.BounceNormalized(clock.Normalize(clock.Scale(m, 2), 4)))},
		{"Sine after loop", "normalize:1|loop|sine", clock.Sine(clock.LoopNormalized(clock.Normalize(m, 1)))},
		{"Timed loop on normalized", "normalize:2|loop:0.25", clock.Loop(clock.Normalize(m, 2), 0.25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built, err := pipeline.Build(m, tt.expr)
			require.NoError(t, err)

			for _, v := range []float32{-1.25, 0, 0.3, 1, 2.75, 5} {
				m.Set(v)
				assert.InDelta(t, tt.static.GetTime(), built.GetTime(), delta, "time %v", v)
			}
		})
	}
}

func TestBuild_NormalizedGuarantee(t *testing.T) {
	built, err := pipeline.Build(clock.NewManual(), "normalize:1|easein")
	require.NoError(t, err)
	_, ok := built.(clock.Normalized)
	assert.True(t, ok, "eased clocks keep the normalized guarantee")

	built, err = pipeline.Build(clock.NewManual(), "normalize:1|scale:2")
	require.NoError(t, err)
	_, ok = built.(clock.Normalized)
	assert.False(t, ok, "time-domain stages drop it")
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want error
	}{
		{"Unknown stage", "warp:2", pipeline.ErrUnknownStage},
		{"Missing argument", "scale", pipeline.ErrStageArity},
		{"Extra argument", "negative:1", pipeline.ErrStageArity},
		{"Clamp needs two", "clamp:1", pipeline.ErrStageArity},
		{"Easing takes none", "normalize:1|easein:2", pipeline.ErrStageArity},
		{"Not a number", "offset:abc", pipeline.ErrStageArgument},
		{"Ease before normalize", "easein", pipeline.ErrNotNormalized},
		{"Loop without duration", "scale:2|loop", pipeline.ErrNotNormalized},
		{"Normalize then scale then ease", "normalize:1|scale:2|sine", pipeline.ErrNotNormalized},
		{"Unknown easing", "normalize:1|ease:elastic", pipeline.ErrUnknownEasing},
		{"Ease without name", "normalize:1|ease", pipeline.ErrStageArity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := pipeline.Build(clock.NewManual(), tt.expr)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, c)
		})
	}
}

func TestBuild_ErrorNamesStage(t *testing.T) {
	_, err := pipeline.Build(clock.NewManual(), "scale:2|offset:x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage 2 (offset:x)")
}
