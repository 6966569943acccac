package stats

import (
	"io"
	"time"

	"github.com/google/pprof/profile"
)

// Sample is one named counter value to be serialized into a pprof profile,
// e.g. {"cache.hit", 4213}.
type Sample struct {
	Name  string
	Value int64
}

// WriteProfile serializes samples as a legal pprof profile (one sample type
// "count", one value per sample) to w. This repurposes the teacher's direct
// dependency on google/pprof (originally used to profile the Go compiler
// itself, see misc/depgraph) as a transport format for this engine's own
// internal counters, so they can be inspected with the standard pprof
// tooling (`go tool pprof`) without a bespoke viewer.
func WriteProfile(w io.Writer, samples []Sample) error {
	p := &profile.Profile{
		SampleType:    []*profile.ValueType{{Type: "count", Unit: "count"}},
		TimeNanos:     time.Now().UnixNano(),
		PeriodType:    &profile.ValueType{Type: "count", Unit: "count"},
		Period:        1,
	}
	funcs := make(map[string]*profile.Function, len(samples))
	for i, s := range samples {
		fn := &profile.Function{ID: uint64(i + 1), Name: s.Name}
		funcs[s.Name] = fn
		p.Function = append(p.Function, fn)
		loc := &profile.Location{
			ID:   uint64(i + 1),
			Line: []profile.Line{{Function: fn}},
		}
		p.Location = append(p.Location, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{s.Value},
		})
	}
	return p.Write(w)
}
