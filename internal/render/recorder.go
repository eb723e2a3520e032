package render

import "github.com/douglassimoes/space-station-orbit-simulation/internal/sim"

// DrawCall is one recorded Draw.
type DrawCall struct {
	Primitive Primitive `json:"primitive"`
	Transform Transform `json:"transform"`
	Color     Color     `json:"color"`
}

// Recorder is a Backend that keeps every call as a draw list.
type Recorder struct {
	Calls []DrawCall
}

// Draw records the call.
func (r *Recorder) Draw(p Primitive, t Transform, c Color) {
	r.Calls = append(r.Calls, DrawCall{Primitive: p, Transform: t, Color: c})
}

// Count returns how many calls of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	n := 0
	for _, c := range r.Calls {
		if c.Primitive.Kind == k {
			n++
		}
	}
	return n
}

// DrawList composes s into a fresh list of calls.
func DrawList(s *sim.Scene, opts Options) []DrawCall {
	var r Recorder
	Compose(s, &r, opts)
	return r.Calls
}
