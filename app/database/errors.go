package database

import (
	"errors"
	"strings"
)

var (
	ErrDuplicateRecipient = errors.New("recipient already registered")
	ErrRecipientNotFound  = errors.New("recipient not found")
	ErrItemNotFound       = errors.New("item not found")
	ErrInvalidRelevance   = errors.New("relevance must be relevant or irrelevant")
	ErrInvalidStatus      = errors.New("invalid dispatch status")
)

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
