package detection

import (
	"errors"
	"fmt"
)

// ErrNilImage is returned by the counting functions when no frame is given.
var ErrNilImage = errors.New("detection: nil image")

// InvalidModeError reports a counting mode that CountClusters does not know.
type InvalidModeError struct {
	Mode Mode
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("detection: mode %q not recognized (want %q, %q or %q)",
		string(e.Mode), ModeFirst, ModeCenter, ModeFull)
}

// UnsupportedMethodError reports an unknown method passed to Center or
// MaxDiameter.
type UnsupportedMethodError struct {
	Op     string // "center" or "max_diameter"
	Method Method
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("detection: %s: method %q not recognized (want %q)",
		e.Op, string(e.Method), MethodFull)
}

// ParseMode converts a user supplied string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFirst, ModeCenter, ModeFull:
		return m, nil
	default:
		return "", &InvalidModeError{Mode: m}
	}
}
