package smooth

import "errors"

// ErrMissingSample is returned when a bone has no cached transform inside a
// smoothing window. Transform smoothing requires the bone in every frame.
var ErrMissingSample = errors.New("smooth: bone missing from pose cache")
