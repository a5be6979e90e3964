package border

import "errors"

// ErrInvalidInput marks a zero-dimension or otherwise unusable source image.
// Retrying cannot help; the input itself is bad.
var ErrInvalidInput = errors.New("invalid input image")

// ErrNoContent is returned when classification finds no paper-like pixels or
// the connected-component search comes back empty. Fatal for that image;
// callers should skip and report rather than retry.
var ErrNoContent = errors.New("no significant content found")

// ErrBadOption marks an out-of-range pipeline option. Raised before any
// image work begins.
var ErrBadOption = errors.New("pipeline option out of range")
