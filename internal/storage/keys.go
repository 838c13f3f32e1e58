package storage

import (
	"errors"
	"strings"
)

// ErrInvalidJobID is returned for blank identifiers.
var ErrInvalidJobID = errors.New("storage: job id is required")

func normalizeJobID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidJobID
	}
	return id, nil
}
