package service

import (
	"errors"
	"fmt"
	"strings"

	"legaldocs/internal/model"
	"legaldocs/internal/repository"
	"legaldocs/internal/translator"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrAlreadyExported        = errors.New("version already exported")
	ErrIntegrityMismatch      = errors.New("content hash mismatch")
	ErrTranslationUnavailable = translator.ErrUnavailable
	ErrApprovalBlocked        = errors.New("approval gate blocked")
	ErrPersistenceFailure     = errors.New("persistence failure")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrInvalidScope           = errors.New("invalid approval scope")
	ErrSegmentsExist          = errors.New("segments already exist for version")
	ErrValidation             = errors.New("validation failed")
)

// ScopeBlock explains why one required scope does not pass the gate.
type ScopeBlock struct {
	Scope  string           `json:"scope"`
	State  model.ScopeState `json:"state"`
	Reason string           `json:"reason"`
}

// BlockedError lists the scopes that keep a version from approval or export.
type BlockedError struct {
	Scopes []ScopeBlock
}

func (e *BlockedError) Error() string {
	names := make([]string, 0, len(e.Scopes))
	for _, s := range e.Scopes {
		names = append(names, s.Scope+"="+string(s.State))
	}
	return fmt.Sprintf("%s: %s", ErrApprovalBlocked, strings.Join(names, ", "))
}

func (e *BlockedError) Unwrap() error { return ErrApprovalBlocked }

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// lookupErr maps a repository miss to ErrNotFound and wraps anything else.
func lookupErr(what string, err error) error {
	if repository.IsNotFound(err) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
