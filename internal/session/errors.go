package session

import "errors"

// ErrUnavailable indicates a storage tier could not be reached. Callers can
// check it with errors.Is to distinguish infrastructure failures from
// application errors.
var ErrUnavailable = errors.New("session store unavailable")
