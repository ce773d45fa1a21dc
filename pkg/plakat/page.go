package plakat

import (
	"fmt"
	"strings"
)

// PageSize is a named physical page format.
type PageSize int

const (
	Letter PageSize = iota
	A4
	Legal
	Tabloid
)

var pageNames = map[PageSize]string{
	Letter:  "Letter",
	A4:      "A4",
	Legal:   "Legal",
	Tabloid: "Tabloid",
}

// PageSizes returns every supported page size in display order.
func PageSizes() []PageSize {
	return []PageSize{Letter, A4, Legal, Tabloid}
}

// Valid reports whether p is one of the known formats.
func (p PageSize) Valid() bool {
	_, ok := pageNames[p]
	return ok
}

// Size returns the page dimensions in inches.
func (p PageSize) Size() Vec {
	switch p {
	case A4:
		return Vec{8.3, 11.7}
	case Legal:
		return Vec{8.5, 14.0}
	case Tabloid:
		return Vec{11.0, 17.0}
	default:
		return Vec{8.5, 11.0}
	}
}

func (p PageSize) String() string {
	if n, ok := pageNames[p]; ok {
		return n
	}
	return fmt.Sprintf("PageSize(%d)", int(p))
}

// Label describes the page with its dimensions in unit u, e.g. "A4 (21.08x29.72)".
func (p PageSize) Label(u Unit) string {
	s := p.Size()
	return fmt.Sprintf("%s (%.2fx%.2f)", p, s.X*u.multiplier(), s.Y*u.multiplier())
}

// ParsePageSize parses a page size name, ignoring case.
func ParsePageSize(s string) (PageSize, error) {
	for _, p := range PageSizes() {
		if strings.EqualFold(strings.TrimSpace(s), p.String()) {
			return p, nil
		}
	}
	return Letter, fmt.Errorf("unknown page size %q", s)
}
