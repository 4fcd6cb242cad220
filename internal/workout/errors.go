package workout

import "errors"

// ErrInvalidPlan indicates a plan that breaks a validation rule.
// The wrapping message names the offending instruction.
var ErrInvalidPlan = errors.New("invalid workout plan")
