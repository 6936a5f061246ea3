package mathutil

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Axis selects one of the three principal axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// ParseAxis accepts "x", "y" or "z" (any case, optional leading '+').
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "+")) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return AxisX, fmt.Errorf("mathutil: unknown axis %q", s)
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Unit returns the unit vector along a.
func (a Axis) Unit() mgl64.Vec3 {
	switch a {
	case AxisY:
		return mgl64.Vec3{0, 1, 0}
	case AxisZ:
		return mgl64.Vec3{0, 0, 1}
	default:
		return mgl64.Vec3{1, 0, 0}
	}
}
