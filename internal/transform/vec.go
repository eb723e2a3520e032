package transform

import (
	"encoding/json"
	"math"
)

// Vec3 is a Cartesian vector. Units depend on the frame it is used in.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Norm() float64        { return math.Sqrt(v.Dot(v)) }

// Cross returns v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

// MarshalJSON encodes the vector as [x, y, z].
func (v Vec3) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{v.X, v.Y, v.Z})
}

// SceneVector is a point in scene units: +Y up, right-handed.
type SceneVector struct {
	X, Y, Z float64
}

func (s SceneVector) Add(o SceneVector) SceneVector {
	return SceneVector{s.X + o.X, s.Y + o.Y, s.Z + o.Z}
}

func (s SceneVector) Sub(o SceneVector) SceneVector {
	return SceneVector{s.X - o.X, s.Y - o.Y, s.Z - o.Z}
}

func (s SceneVector) Scale(k float64) SceneVector {
	return SceneVector{s.X * k, s.Y * k, s.Z * k}
}

func (s SceneVector) Norm() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

func (s SceneVector) IsFinite() bool {
	return finite(s.X) && finite(s.Y) && finite(s.Z)
}

// MarshalJSON encodes the vector as [x, y, z].
func (s SceneVector) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{s.X, s.Y, s.Z})
}

// UnmarshalJSON accepts the [x, y, z] form written by MarshalJSON.
func (s *SceneVector) UnmarshalJSON(b []byte) error {
	var a [3]float64
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*s = SceneVector{a[0], a[1], a[2]}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
