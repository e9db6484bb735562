package errorutil

import "errors"

// ErrDataIntegrity is a base error type to use for failures caused by an
// archived event log that no longer passes validation.
var ErrDataIntegrity = errors.New("data integrity error")

// ErrNoResults represents situations in which replaying an event log produced
// no finished profiles.
var ErrNoResults = errors.New("no results returned")
