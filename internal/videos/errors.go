package videos

import "errors"

var (
	// ErrMissingTitle indicates a video was uploaded without a title.
	ErrMissingTitle = errors.New("video title is required")
	// ErrEmptyComment indicates a comment without content.
	ErrEmptyComment = errors.New("comment content is required")
)
