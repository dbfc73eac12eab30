package internal

import "errors"

// ErrInvalidArgument marks contract violations detected at construction or call
// time: empty chapters, missing reference fields, out-of-range passage numbers.
// Such errors are never retried.
var ErrInvalidArgument = errors.New("invalid argument")

// TranslatedPassage pairs an original passage with its translation.
type TranslatedPassage struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
}
