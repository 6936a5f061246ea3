package prep

import "errors"

var (
	// ErrNoSkeleton is returned when the asset has no skeleton.
	ErrNoSkeleton = errors.New("prep: asset has no skeleton")

	// ErrInvalidFrameCount is returned for a negative frame count.
	ErrInvalidFrameCount = errors.New("prep: invalid frame count")

	// ErrMissingBones is returned when a tracked bone is absent from the
	// skeleton. The wrapping error lists the names.
	ErrMissingBones = errors.New("prep: bones missing from skeleton")

	// ErrUnreadableCurve is returned when a curve the pass would replace
	// exists but the asset cannot hand back its keys for a snapshot.
	ErrUnreadableCurve = errors.New("prep: existing curve cannot be read")

	// ErrInvalidSettings is returned by Settings.Validate.
	ErrInvalidSettings = errors.New("prep: invalid settings")
)
