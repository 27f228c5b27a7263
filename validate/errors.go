package validate

import "errors"

// ErrMissingBaseline is returned when an actual image is supplied without a
// baseline to compare against. This is a caller contract violation, never
// silently tolerated.
var ErrMissingBaseline = errors.New("validate: actual image supplied without a baseline")
