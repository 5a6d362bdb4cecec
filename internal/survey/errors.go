package survey

import "errors"

// ErrNoOrigin means a survey was started before any current position was
// known. Recoverable: the user re-detects their location and retries.
var ErrNoOrigin = errors.New("no current system known")

// ErrNoSystemsFound means every configured data source failed or returned an
// empty result. Recoverable: the user picks another source or radius.
var ErrNoSystemsFound = errors.New("no systems found from any data source")
