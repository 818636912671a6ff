package models

import "errors"

// ErrValidation marks input that fails shape checks (empty post body,
// blank comment, malformed username). Services wrap it with detail:
// fmt.Errorf("%w: message or media required", models.ErrValidation).
var ErrValidation = errors.New("validation failed")
