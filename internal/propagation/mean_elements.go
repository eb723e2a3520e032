package propagation

import (
	"errors"
	"math"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// WGS-72 constants, the convention the element sets are fitted against.
const (
	MuKm3S2       = 398600.8 // km³/s²
	EarthRadiusKm = 6378.135
	J2            = 0.001082616
)

const (
	k2 = 0.5 * J2

	// Perigee altitudes (km) at which the atmospheric density fit changes.
	densityRefKm   = 78.0
	densityTopKm   = 120.0
	lowPerigeeKm   = 156.0
	floorPerigeeKm = 98.0

	minEccentricity = 1e-6
	minPsiSq        = 1e-12
)

// xke is sqrt(mu) in Earth radii^1.5 per minute.
var xke = 60.0 / math.Sqrt(EarthRadiusKm*EarthRadiusKm*EarthRadiusKm/MuKm3S2)

// Constants are the values derived once from an element set.
type Constants struct {
	MeanMotion    float64 `json:"mean_motion_rad_min"` // recovered, rad/min
	SemiMajorAxis float64 `json:"semi_major_axis_er"`  // recovered, Earth radii

	MeanAnomalyRate float64 `json:"mean_anomaly_rate"` // rad/min
	ArgPerigeeRate  float64 `json:"arg_perigee_rate"`  // rad/min
	RAANRate        float64 `json:"raan_rate"`         // rad/min

	C1        float64 `json:"c1"`
	C4        float64 `json:"c4"`
	NodeDrag  float64 `json:"node_drag"`
	T2Cof     float64 `json:"t2cof"`
	DragTerms bool    `json:"drag_terms"`
}

// Option tunes a MeanElements model.
type Option func(*MeanElements)

// WithTolerance sets the Kepler solver convergence tolerance in radians.
func WithTolerance(tol float64) Option {
	return func(m *MeanElements) {
		if tol > 0 {
			m.tol = tol
		}
	}
}

// WithMaxIterations bounds the Kepler solver.
func WithMaxIterations(n int) Option {
	return func(m *MeanElements) {
		if n > 0 {
			m.maxIter = n
		}
	}
}

// MeanElements propagates with secular J2 rates and B* drag on top of
// Keplerian motion. Short-period terms are not modelled.
type MeanElements struct {
	el      tle.Elements
	c       Constants
	tol     float64
	maxIter int
}

// New validates el and derives the model constants.
func New(el tle.Elements, opts ...Option) (*MeanElements, error) {
	if err := el.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidElements, Reason: "element validation", Err: err}
	}

	m := &MeanElements{el: el, tol: DefaultTolerance, maxIter: DefaultMaxIterations}
	for _, opt := range opts {
		opt(m)
	}

	c, err := deriveConstants(el)
	if err != nil {
		return nil, err
	}
	m.c = c
	return m, nil
}

func deriveConstants(el tle.Elements) (Constants, error) {
	n0 := el.MeanMotionRevPerDay * 2 * math.Pi / 1440.0
	e0 := el.Eccentricity

	cosio := math.Cos(el.InclinationRad)
	theta2 := cosio * cosio
	x3thm1 := 3*theta2 - 1
	x1mth2 := 1 - theta2
	b0sq := 1 - e0*e0
	b0 := math.Sqrt(b0sq)

	// Recover the Brouwer mean motion from the Kozai value in the element set.
	a1 := math.Pow(xke/n0, 2.0/3.0)
	d1 := 1.5 * k2 * x3thm1 / (a1 * a1 * b0 * b0sq)
	a0 := a1 * (1 - d1/3 - d1*d1 - 134.0/81.0*d1*d1*d1)
	d0 := 1.5 * k2 * x3thm1 / (a0 * a0 * b0 * b0sq)
	n := n0 / (1 + d0)
	a := a0 / (1 - d0)

	if !(a > 0) || math.IsInf(a, 0) || !(n > 0) {
		return Constants{}, &Error{Kind: KindInvalidElements, Reason: "mean motion recovery failed"}
	}

	pinvsq := 1 / (a * a * b0sq * b0sq)
	temp1 := 3 * k2 * pinvsq * n

	c := Constants{
		MeanMotion:      n,
		SemiMajorAxis:   a,
		MeanAnomalyRate: n + 0.5*temp1*b0*x3thm1,
		ArgPerigeeRate:  -0.5 * temp1 * (1 - 5*theta2),
		RAANRate:        -temp1 * cosio,
	}

	// Density fit parameters, lowered for perigees under 156 km.
	perigee := (a*(1-e0) - 1) * EarthRadiusKm
	s4 := 1 + densityRefKm/EarthRadiusKm
	qoms24 := math.Pow((densityTopKm-densityRefKm)/EarthRadiusKm, 4)
	if perigee < lowPerigeeKm {
		s := perigee - densityRefKm
		if perigee < floorPerigeeKm {
			s = 20
		}
		qoms24 = math.Pow((densityTopKm-s)/EarthRadiusKm, 4)
		s4 = s/EarthRadiusKm + 1
	}

	tsi := 1 / (a - s4)
	eta := a * e0 * tsi
	etasq := eta * eta
	eeta := e0 * eta
	psisq := math.Abs(1 - etasq)
	if psisq < minPsiSq || el.BStar == 0 {
		// Drag terms are singular or irrelevant; keep secular motion only.
		return c, nil
	}

	coef := qoms24 * math.Pow(tsi, 4)
	coef1 := coef / math.Pow(psisq, 3.5)
	c2 := coef1 * n * (a*(1+1.5*etasq+eeta*(4+etasq)) +
		0.75*k2*tsi/psisq*x3thm1*(8+3*etasq*(8+etasq)))
	c.C1 = el.BStar * c2
	c.C4 = 2 * n * coef1 * a * b0sq * (eta*(2+0.5*etasq) + e0*(0.5+2*etasq) -
		2*k2*tsi/(a*psisq)*(-3*x3thm1*(1-2*eeta+etasq*(1.5-0.5*eeta))+
			0.75*x1mth2*(2*etasq-eeta*(1+etasq))*math.Cos(2*el.ArgPerigeeRad)))
	c.NodeDrag = 3.5 * b0sq * c.RAANRate * c.C1
	c.T2Cof = 1.5 * c.C1
	c.DragTerms = true
	return c, nil
}

// Name implements Model.
func (m *MeanElements) Name() string { return ModelMeanElements }

// Elements implements Model.
func (m *MeanElements) Elements() tle.Elements { return m.el }

// Constants returns the derived constants.
func (m *MeanElements) Constants() Constants { return m.c }

// SemiMajorAxisKm returns the recovered semi-major axis.
func (m *MeanElements) SemiMajorAxisKm() float64 { return m.c.SemiMajorAxis * EarthRadiusKm }

// PeriodMinutes returns the anomalistic period, the time for the mean
// anomaly to advance one revolution.
func (m *MeanElements) PeriodMinutes() float64 { return 2 * math.Pi / m.c.MeanAnomalyRate }

// Propagate returns the inertial state at the given offset from epoch.
func (m *MeanElements) Propagate(t float64) (StateVector, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return StateVector{}, diverged(t, "offset is not finite")
	}
	el, c := &m.el, &m.c

	meanAnomaly := el.MeanAnomalyRad + c.MeanAnomalyRate*t
	argp := el.ArgPerigeeRad + c.ArgPerigeeRate*t
	raan := el.RAANRad + c.RAANRate*t + c.NodeDrag*t*t

	a := c.SemiMajorAxis
	e := el.Eccentricity
	if c.DragTerms {
		tempa := 1 - c.C1*t
		if tempa <= 0 {
			return StateVector{}, diverged(t, "semi-major axis decayed to zero")
		}
		a *= tempa * tempa
		e -= el.BStar * c.C4 * t
		meanAnomaly += c.MeanMotion * c.T2Cof * t * t
	}
	if e >= 1 {
		return StateVector{}, diverged(t, "eccentricity %.6f is not elliptical", e)
	}
	e = math.Max(e, minEccentricity)
	if a*(1-e) < 1 {
		return StateVector{}, diverged(t, "perigee below Earth surface")
	}

	E, err := SolveKepler(meanAnomaly, e, m.tol, m.maxIter)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			pe.Minutes = t
		}
		return StateVector{}, err
	}

	sinE, cosE := math.Sincos(E)
	root := math.Sqrt(1 - e*e)
	nu := math.Atan2(root*sinE, cosE-e)
	rKm := a * (1 - e*cosE) * EarthRadiusKm
	pKm := a * (1 - e*e) * EarthRadiusKm

	sinNu, cosNu := math.Sincos(nu)
	vs := math.Sqrt(MuKm3S2 / pKm)

	P, Q := perifocalBasis(raan, el.InclinationRad, argp)
	pos := P.Scale(rKm * cosNu).Add(Q.Scale(rKm * sinNu))
	vel := P.Scale(-vs * sinNu).Add(Q.Scale(vs * (e + cosNu)))

	if !pos.IsFinite() || !vel.IsFinite() {
		return StateVector{}, diverged(t, "non-finite state")
	}
	return StateVector{MinutesSinceEpoch: t, PositionKm: pos, VelocityKmS: vel}, nil
}

// perifocalBasis returns the inertial directions of perigee (P) and of
// the point 90° ahead in the orbit plane (Q).
func perifocalBasis(raan, inc, argp float64) (transform.Vec3, transform.Vec3) {
	sO, cO := math.Sincos(raan)
	si, ci := math.Sincos(inc)
	sw, cw := math.Sincos(argp)
	P := transform.Vec3{
		X: cO*cw - sO*sw*ci,
		Y: sO*cw + cO*sw*ci,
		Z: sw * si,
	}
	Q := transform.Vec3{
		X: -cO*sw - sO*cw*ci,
		Y: -sO*sw + cO*cw*ci,
		Z: cw * si,
	}
	return P, Q
}
