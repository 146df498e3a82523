package ai

import "github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"

// IQ tunes a bot virus's aggression bias once per pass, after all of its
// clusters have acted. The bias scales how readily clusters pick fights:
// 0.5 is neutral, higher attacks against worse odds.
type IQ interface {
	Adjust(v *entity.Virus, bias float64) float64
}

// IQFunc adapts a function into an IQ.
type IQFunc func(v *entity.Virus, bias float64) float64

func (f IQFunc) Adjust(v *entity.Virus, bias float64) float64 {
	if f == nil {
		return bias
	}
	return f(v, bias)
}

// FixedIQ leaves the bias unchanged.
type FixedIQ struct{}

func (FixedIQ) Adjust(_ *entity.Virus, bias float64) float64 { return bias }

func clampBias(b float64) float64 {
	return min(max(b, 0), 1)
}
