package tle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// LineLength is the number of significant columns in an element line.
// A trailing line terminator makes it 70.
const LineLength = 69

// ErrInvalidElements is matched by every parse and validation failure.
var ErrInvalidElements = errors.New("invalid orbital elements")

// ParseError identifies the line and field that failed to parse.
type ParseError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d field %s %q: %v", e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("line %d field %s %q: invalid", e.Line, e.Field, e.Value)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidElements, e.Err}
	}
	return []error{ErrInvalidElements}
}

// Elements is a parsed two-line element set. Angles are in radians,
// mean motion in revolutions per day.
type Elements struct {
	NORADID        int       `json:"norad_id"`
	Name           string    `json:"name,omitempty"`
	Classification string    `json:"classification"`
	Designator     string    `json:"designator"`
	Epoch          time.Time `json:"epoch"`
	// First and second derivatives of mean motion as printed (rev/day^2, rev/day^3).
	MeanMotionDot  float64 `json:"mean_motion_dot"`
	MeanMotionDDot float64 `json:"mean_motion_ddot"`
	BStar          float64 `json:"bstar"`
	ElementSet     int     `json:"element_set"`

	InclinationRad      float64 `json:"inclination_rad"`
	RAANRad             float64 `json:"raan_rad"`
	Eccentricity        float64 `json:"eccentricity"`
	ArgPerigeeRad       float64 `json:"arg_perigee_rad"`
	MeanAnomalyRad      float64 `json:"mean_anomaly_rad"`
	MeanMotionRevPerDay float64 `json:"mean_motion_rev_per_day"`
	RevNumber           int     `json:"rev_number"`

	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// ParseElements decodes a two-line element set. Lines may carry trailing
// whitespace or a line terminator; the first 69 columns are significant
// and both checksums must match.
func ParseElements(line1, line2 string) (Elements, error) {
	l1 := strings.TrimRight(line1, "\r\n ")
	l2 := strings.TrimRight(line2, "\r\n ")

	if err := checkLine(l1, 1); err != nil {
		return Elements{}, err
	}
	if err := checkLine(l2, 2); err != nil {
		return Elements{}, err
	}

	p := fieldParser{}
	el := Elements{Line1: l1, Line2: l2}

	el.NORADID = p.required(1, "satellite_number", l1[2:7])
	el.Classification = strings.TrimSpace(l1[7:8])
	el.Designator = strings.TrimSpace(l1[9:17])
	epochField := l1[18:32]
	if p.err == nil {
		epoch, err := parseEpoch(strings.TrimSpace(epochField))
		if err != nil {
			p.fail(1, "epoch", epochField, err)
		}
		el.Epoch = epoch
	}
	el.MeanMotionDot = p.float(1, "mean_motion_dot", l1[33:43])
	el.MeanMotionDDot = p.implied(1, "mean_motion_ddot", l1[44:52])
	el.BStar = p.implied(1, "bstar", l1[53:61])
	el.ElementSet = p.integer(1, "element_set", l1[64:68])

	if n2 := p.required(2, "satellite_number", l2[2:7]); p.err == nil && n2 != el.NORADID {
		p.fail(2, "satellite_number", l2[2:7], fmt.Errorf("does not match line 1 (%d)", el.NORADID))
	}
	el.InclinationRad = p.degrees(2, "inclination", l2[8:16])
	el.RAANRad = p.degrees(2, "raan", l2[17:25])
	el.Eccentricity = p.decimal(2, "eccentricity", l2[26:33])
	el.ArgPerigeeRad = p.degrees(2, "arg_perigee", l2[34:42])
	el.MeanAnomalyRad = p.degrees(2, "mean_anomaly", l2[43:51])
	el.MeanMotionRevPerDay = p.float(2, "mean_motion", l2[52:63])
	el.RevNumber = p.integer(2, "revolution_number", l2[63:68])

	if p.err != nil {
		return Elements{}, p.err
	}
	if err := el.Validate(); err != nil {
		return Elements{}, err
	}
	return el, nil
}

// Validate checks the physical invariants of the element set.
func (el Elements) Validate() error {
	finite := []struct {
		field string
		v     float64
	}{
		{"mean_motion_dot", el.MeanMotionDot},
		{"mean_motion_ddot", el.MeanMotionDDot},
		{"bstar", el.BStar},
		{"inclination", el.InclinationRad},
		{"raan", el.RAANRad},
		{"eccentricity", el.Eccentricity},
		{"arg_perigee", el.ArgPerigeeRad},
		{"mean_anomaly", el.MeanAnomalyRad},
		{"mean_motion", el.MeanMotionRevPerDay},
	}
	for _, f := range finite {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ParseError{Line: lineOf(f.field), Field: f.field, Value: fmt.Sprint(f.v), Err: errors.New("not finite")}
		}
	}
	if el.Eccentricity < 0 || el.Eccentricity >= 1 {
		return &ParseError{Line: 2, Field: "eccentricity", Value: fmt.Sprint(el.Eccentricity), Err: errors.New("must be in [0, 1)")}
	}
	if el.InclinationRad < 0 || el.InclinationRad > math.Pi {
		return &ParseError{Line: 2, Field: "inclination", Value: fmt.Sprint(el.InclinationRad), Err: errors.New("must be in [0, pi]")}
	}
	if el.MeanMotionRevPerDay <= 0 {
		return &ParseError{Line: 2, Field: "mean_motion", Value: fmt.Sprint(el.MeanMotionRevPerDay), Err: errors.New("must be positive")}
	}
	return nil
}

// EpochJD returns the epoch as a Julian date.
func (el Elements) EpochJD() float64 {
	return julian.TimeToJD(el.Epoch)
}

// MinutesSince returns the offset of t from the epoch in minutes.
func (el Elements) MinutesSince(t time.Time) float64 {
	return t.Sub(el.Epoch).Minutes()
}

// TimeAt returns the UTC time at the given offset from the epoch.
func (el Elements) TimeAt(minutes float64) time.Time {
	return el.Epoch.Add(time.Duration(minutes * float64(time.Minute)))
}

func lineOf(field string) int {
	switch field {
	case "mean_motion_dot", "mean_motion_ddot", "bstar":
		return 1
	}
	return 2
}

func checkLine(line string, num int) error {
	if len(line) != LineLength {
		return &ParseError{Line: num, Field: "line_length", Value: strconv.Itoa(len(line)),
			Err: fmt.Errorf("want %d columns", LineLength)}
	}
	if line[0] != byte('0'+num) || line[1] != ' ' {
		return &ParseError{Line: num, Field: "line_number", Value: line[:2]}
	}
	want := line[LineLength-1]
	if want < '0' || want > '9' {
		return &ParseError{Line: num, Field: "checksum", Value: string(want)}
	}
	if got := Checksum(line); got != int(want-'0') {
		return &ParseError{Line: num, Field: "checksum", Value: string(want),
			Err: fmt.Errorf("computed %d", got)}
	}
	return nil
}

// Checksum computes the modulo-10 checksum over the first 68 columns:
// digits count at face value, minus signs count as one.
func Checksum(line string) int {
	sum := 0
	for i := 0; i < len(line) && i < LineLength-1; i++ {
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

var errBlank = errors.New("field is blank")

// fieldParser records the first failure and turns later calls into no-ops.
type fieldParser struct {
	err error
}

func (p *fieldParser) fail(line int, field, value string, err error) {
	if p.err == nil {
		p.err = &ParseError{Line: line, Field: field, Value: value, Err: err}
	}
}

func (p *fieldParser) integer(line int, field, s string) int {
	if p.err != nil {
		return 0
	}
	t := strings.TrimSpace(s)
	if t == "" {
		return 0
	}
	v, err := strconv.Atoi(t)
	if err != nil {
		p.fail(line, field, s, err)
	}
	return v
}

// required is integer for fields that may not be blank.
func (p *fieldParser) required(line int, field, s string) int {
	if p.err == nil && strings.TrimSpace(s) == "" {
		p.fail(line, field, s, errBlank)
		return 0
	}
	return p.integer(line, field, s)
}

func (p *fieldParser) float(line int, field, s string) float64 {
	if p.err != nil {
		return 0
	}
	t := strings.TrimSpace(s)
	if t == "" {
		p.fail(line, field, s, errors.New("empty"))
		return 0
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		p.fail(line, field, s, err)
	}
	return v
}

func (p *fieldParser) degrees(line int, field, s string) float64 {
	return p.float(line, field, s) * math.Pi / 180
}

// decimal parses a field with an implied leading decimal point.
func (p *fieldParser) decimal(line int, field, s string) float64 {
	if p.err != nil {
		return 0
	}
	t := strings.TrimSpace(s)
	for _, c := range t {
		if c < '0' || c > '9' {
			p.fail(line, field, s, errors.New("expected digits"))
			return 0
		}
	}
	if t == "" {
		p.fail(line, field, s, errors.New("empty"))
		return 0
	}
	v, err := strconv.ParseFloat("0."+t, 64)
	if err != nil {
		p.fail(line, field, s, err)
	}
	return v
}

// implied parses the "±NNNNN±E" notation: a signed mantissa with an
// implied leading decimal point and a signed power-of-ten exponent.
func (p *fieldParser) implied(line int, field, s string) float64 {
	if p.err != nil {
		return 0
	}
	t := strings.TrimSpace(s)
	if t == "" {
		return 0
	}
	sign := 1.0
	switch t[0] {
	case '-':
		sign = -1
		t = t[1:]
	case '+':
		t = t[1:]
	}
	if len(t) < 3 {
		p.fail(line, field, s, errors.New("too short"))
		return 0
	}
	mant, exp := t[:len(t)-2], t[len(t)-2:]
	m, err := strconv.ParseFloat("0."+mant, 64)
	if err != nil {
		p.fail(line, field, s, err)
		return 0
	}
	e, err := strconv.Atoi(exp)
	if err != nil {
		p.fail(line, field, s, err)
		return 0
	}
	return sign * m * math.Pow(10, float64(e))
}
