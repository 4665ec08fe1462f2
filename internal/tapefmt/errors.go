package tapefmt

import "errors"

// ErrInvalidOptions is wrapped by DecoderOptions.Validate to report
// the specific inconsistency found.
var ErrInvalidOptions = errors.New("tapefmt: invalid decoder options")
