package types

import "errors"

// ErrUnsupportedPlatform is returned by collectors and readers that need a
// Windows API the running platform does not provide.
var ErrUnsupportedPlatform = errors.New("not supported on this platform")
