package sink

import "errors"

// ErrStore wraps every storage failure.
var ErrStore = errors.New("payload store")
