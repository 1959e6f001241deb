package growth

import "errors"

// Caller-addressable failures. Storage problems are wrapped with ErrStorage
// and never with one of the validation sentinels.
var (
	ErrDuplicateEntity = errors.New("entity already exists in graph")
	ErrNotFound        = errors.New("not found")
	ErrInvalidRelation = errors.New("relation not in vocabulary")
	ErrInvalidInput    = errors.New("invalid input")
	ErrStorage         = errors.New("storage failure")
)
