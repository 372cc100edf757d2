package services

import (
	"errors"
	"fmt"

	"github.com/quizmind/apiserver/internal/store"
)

var (
	ErrInvalidCredentials  = errors.New("incorrect username or password")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateTopic      = errors.New("topic already exists")
	ErrDuplicatePreference = errors.New("user preferences already exist")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrUnknownTopic        = errors.New("one or more topics not found")

	// The not-found errors also match store.ErrNotFound.
	ErrUserNotFound       = fmt.Errorf("user not found: %w", store.ErrNotFound)
	ErrPreferenceNotFound = fmt.Errorf("preferences not found: %w", store.ErrNotFound)
	ErrNoTopics           = fmt.Errorf("no topics selected: %w", store.ErrNotFound)

	ErrGenerationTimeout = errors.New("quiz generation timed out")
	ErrGenerationParse   = errors.New("quiz generation returned an invalid response")
	ErrGenerationFailed  = errors.New("quiz generation failed")
)
