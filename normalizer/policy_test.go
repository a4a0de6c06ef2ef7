package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	type tc struct {
		name   string
		modify func(*Policy)
	}
	tcs := []tc{
		{name: "zero target", modify: func(p *Policy) { p.TargetBytes = 0 }},
		{name: "zero max width", modify: func(p *Policy) { p.MaxWidth = 0 }},
		{name: "zero default height", modify: func(p *Policy) { p.DefaultHeight = 0 }},
		{name: "start quality above 100", modify: func(p *Policy) { p.StartQuality = 101 }},
		{name: "floor above start", modify: func(p *Policy) { p.QualityFloor = 100; p.StartQuality = 90 }},
		{name: "zero step", modify: func(p *Policy) { p.QualityStep = 0 }},
		{name: "negative iterations", modify: func(p *Policy) { p.MaxIterations = -1 }},
		{name: "effort above 6", modify: func(p *Policy) { p.Effort = 7 }},
		{name: "zero fallback width", modify: func(p *Policy) { p.MinFallbackWidth = 0 }},
		{name: "zero fallback quality", modify: func(p *Policy) { p.FallbackQuality = 0 }},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultPolicy()
			tc.modify(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidPolicy)
		})
	}
}

func TestPolicyOptions(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, EncodeOptions{Quality: 90, Effort: 6, NearLossless: true, SmartSubsample: true}, p.options(90))
	assert.Equal(t, EncodeOptions{Quality: 85, Effort: 6, SmartSubsample: true}, p.options(85))
}
