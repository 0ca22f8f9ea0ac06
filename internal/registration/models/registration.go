package models

import (
	"strings"
	"time"

	dErrors "verdant/pkg/domain-errors"
)

// Status is the registration's position in the two-party review pipeline.
type Status string

const (
	// StatusPendingManagerReview is the initial state after signup.
	StatusPendingManagerReview Status = "pending_manager_review"
	// StatusPendingAdminApproval follows a manager recommendation.
	StatusPendingAdminApproval Status = "pending_admin_approval"
	// StatusApproved is terminal; it unlocks assessment intake.
	StatusApproved Status = "approved"
	// StatusRejected is terminal.
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo encodes the review state machine:
//
//	pending_manager_review -> pending_admin_approval | rejected | approved
//	pending_admin_approval -> approved | rejected
//
// The direct pending_manager_review -> approved edge is the administrator
// bypass; callers log it when taken. Terminal states accept nothing.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPendingManagerReview:
		return target == StatusPendingAdminApproval || target == StatusRejected || target == StatusApproved
	case StatusPendingAdminApproval:
		return target == StatusApproved || target == StatusRejected
	default:
		return false
	}
}

// Registration is the aggregate root for an organization's application.
//
// Invariants:
//   - Email is unique across registrations and immutable after construction
//   - Status only moves along CanTransitionTo edges
//   - AssessmentNotifiedAt is set at most once, in the same mutation as the
//     approval that earns it, so the notify-once check is consistent with
//     the state transition
//   - Registrations are never physically deleted
type Registration struct {
	ID           string `json:"id"`
	Company      string `json:"company"`
	ContactName  string `json:"contact_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	Status          Status `json:"status"`
	ManagerNotes    string `json:"manager_notes,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`

	// UserID is the provisioned account, set on approval.
	UserID string `json:"user_id,omitempty"`

	// AssessmentNotifiedAt records the one-time "start your assessment"
	// notification dispatched after a full two-stage approval.
	AssessmentNotifiedAt *time.Time `json:"assessment_notified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRegistrationParams carries the validated signup input.
type NewRegistrationParams struct {
	ID           string
	Company      string
	ContactName  string
	Email        string
	PasswordHash string
}

// NewRegistration constructs a registration in the initial review state.
func NewRegistration(p NewRegistrationParams, now time.Time) (*Registration, error) {
	company := strings.TrimSpace(p.Company)
	email := strings.ToLower(strings.TrimSpace(p.Email))

	if p.ID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "registration id is required")
	}
	if company == "" || len(company) > 200 {
		return nil, dErrors.New(dErrors.CodeValidation, "company name must be 1-200 characters")
	}
	if !looksLikeEmail(email) {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid contact email is required")
	}
	if p.PasswordHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "password hash is required")
	}

	return &Registration{
		ID:           p.ID,
		Company:      company,
		ContactName:  strings.TrimSpace(p.ContactName),
		Email:        email,
		PasswordHash: p.PasswordHash,
		Status:       StatusPendingManagerReview,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// looksLikeEmail is a containment check, not RFC validation; the mail
// transport is the real arbiter of deliverability.
func looksLikeEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\n")
}

// CanRecommend checks the manager-recommendation transition.
// Use with ApplyRecommendation in Execute callbacks.
func (r *Registration) CanRecommend() error {
	if !r.Status.CanTransitionTo(StatusPendingAdminApproval) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"registration cannot be recommended from status "+string(r.Status))
	}
	return nil
}

// ApplyRecommendation moves the registration to admin approval, persisting
// the manager's notes. Call CanRecommend first.
func (r *Registration) ApplyRecommendation(notes string, now time.Time) {
	r.Status = StatusPendingAdminApproval
	r.ManagerNotes = notes
	r.UpdatedAt = now
}

// CanReject checks the rejection transition from either review stage.
func (r *Registration) CanReject() error {
	if !r.Status.CanTransitionTo(StatusRejected) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"registration cannot be rejected from status "+string(r.Status))
	}
	return nil
}

// ApplyRejection moves the registration to the terminal rejected state.
func (r *Registration) ApplyRejection(reason string, now time.Time) {
	r.Status = StatusRejected
	r.RejectionReason = reason
	r.UpdatedAt = now
}

// CanApprove checks the approval transition.
func (r *Registration) CanApprove() error {
	if !r.Status.CanTransitionTo(StatusApproved) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"registration cannot be approved from status "+string(r.Status))
	}
	return nil
}

// ApplyApproval moves the registration to the terminal approved state and
// reports whether the one-time assessment invitation should be dispatched.
// The invitation is earned only by a full two-stage approval and is claimed
// here, in the same mutation as the transition, so repeated approval calls
// can never double-send it.
func (r *Registration) ApplyApproval(now time.Time) (inviteToAssessment bool) {
	fromAdminReview := r.Status == StatusPendingAdminApproval
	r.Status = StatusApproved
	r.UpdatedAt = now

	if fromAdminReview && r.AssessmentNotifiedAt == nil {
		notified := now
		r.AssessmentNotifiedAt = &notified
		return true
	}
	return false
}

// Clone returns a copy safe to hand outside the store's lock.
func (r *Registration) Clone() *Registration {
	if r == nil {
		return nil
	}
	clone := *r
	if r.AssessmentNotifiedAt != nil {
		t := *r.AssessmentNotifiedAt
		clone.AssessmentNotifiedAt = &t
	}
	return &clone
}
