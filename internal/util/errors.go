package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")
	ErrNoHeadings        = errors.New("no section headings detected")

	ErrIndexUnavailable = errors.New("vector index unavailable")
)
