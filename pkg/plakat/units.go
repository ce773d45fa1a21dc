package plakat

import (
	"fmt"
	"strings"
)

// CentimetersPerInch converts between the two supported units.
const CentimetersPerInch = 2.54

// Unit is a linear unit for user-facing measurements.
type Unit int

const (
	Inches Unit = iota
	Centimeters
)

func (u Unit) String() string {
	switch u {
	case Inches:
		return "in"
	case Centimeters:
		return "cm"
	}
	return fmt.Sprintf("Unit(%d)", int(u))
}

// multiplier is the number of u per inch.
func (u Unit) multiplier() float64 {
	if u == Centimeters {
		return CentimetersPerInch
	}
	return 1.0
}

// ParseUnit parses a unit name.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in", "inch", "inches":
		return Inches, nil
	case "cm", "centimeter", "centimeters":
		return Centimeters, nil
	}
	return Inches, fmt.Errorf("unknown unit %q", s)
}

// Dimension is a length paired with its unit.
type Dimension struct {
	Value float64
	Unit  Unit
}

// Inches normalizes d to the canonical unit.
func (d Dimension) Inches() float64 {
	return d.Value / d.Unit.multiplier()
}

func (d Dimension) String() string {
	return fmt.Sprintf("%.2f%s", d.Value, d.Unit)
}

// InUnit converts a canonical length in inches to u.
func InUnit(inches float64, u Unit) Dimension {
	return Dimension{Value: inches * u.multiplier(), Unit: u}
}
