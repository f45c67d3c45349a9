package canon

import "errors"

// ErrNoContext is the panic value raised when a core operation runs on a nil
// or closed Translation Context.
var ErrNoContext = errors.New("canon: no active translation context")
