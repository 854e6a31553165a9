package tenants

import (
	"errors"
	"strings"

	"github.com/expensehub/backend/internal/models"
)

var (
	// ErrInvalidTransition is returned for any disallowed status change,
	// including transitions into the current state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrReasonRequired is returned when suspend or delete is called without
	// a non-blank reason.
	ErrReasonRequired = errors.New("reason required")
)

// transitions is the tenant lifecycle state machine. cancelled is terminal.
var transitions = map[models.TenantStatus][]models.TenantStatus{
	models.StatusTrial:     {models.StatusActive, models.StatusSuspended, models.StatusCancelled},
	models.StatusActive:    {models.StatusSuspended, models.StatusCancelled},
	models.StatusSuspended: {models.StatusActive, models.StatusCancelled},
	models.StatusCancelled: {},
}

// ValidateTransition checks whether from -> to is a legal lifecycle move.
// Same-state transitions fail: a caller asking for the current state is
// working from a stale view and should see the error.
func ValidateTransition(from, to models.TenantStatus) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// ValidateReason rejects empty or whitespace-only reasons.
func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	return nil
}
