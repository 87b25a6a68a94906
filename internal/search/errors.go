package search

import (
	"errors"
	"fmt"
)

// FeatureUnavailableError is returned when a request needs a capability that
// has not been provisioned. Hint tells the operator how to provision it.
type FeatureUnavailableError struct {
	Feature string
	Hint    string
}

func (e *FeatureUnavailableError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s is not available", e.Feature)
	}
	return fmt.Sprintf("%s is not available: %s", e.Feature, e.Hint)
}

// ErrFullTextUnavailable is returned for text searches when the full-text index is missing.
var ErrFullTextUnavailable = &FeatureUnavailableError{
	Feature: "full-text search",
	Hint:    "run `partsearch reindex`",
}

// IsFeatureUnavailable reports whether err is, or wraps, a FeatureUnavailableError.
func IsFeatureUnavailable(err error) bool {
	var fe *FeatureUnavailableError
	return errors.As(err, &fe)
}
