package authtree

import "errors"

// ErrStaleContinuation is returned when a continuation token no longer matches its
// vault record: it was already answered (replay) or superseded by a later token.
var ErrStaleContinuation = errors.New("stale continuation")

// ErrTreeMismatch is returned when a request names a different tree than the
// evaluation its continuation token belongs to.
var ErrTreeMismatch = errors.New("continuation belongs to another tree")
