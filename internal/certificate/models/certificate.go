// Package models defines the certificate aggregate.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	dErrors "verdant/pkg/domain-errors"
)

// GradeAuto asks the issuance path to derive the grade from the member's
// current assessment instead of taking it verbatim.
const GradeAuto = "auto"

// NumberPrefix starts every certificate number.
const NumberPrefix = "ESG-"

// Certificate is a member's issued certificate. Each member has at most one
// current certificate, keyed by UserID. A revoked certificate keeps its row
// with the issuance fields cleared.
type Certificate struct {
	ID        string
	UserID    string
	Number    string
	Grade     string
	URL       string
	Generated bool
	IssuedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewNumber derives a certificate number from the holder and the issuance
// instant. The nanosecond component keeps regenerated certificates distinct.
func NewNumber(userID string, nano int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%d", userID, nano)))
	return NumberPrefix + strings.ToUpper(hex.EncodeToString(sum[:8]))
}

// ApplyIssuance fills the issuance fields.
func (c *Certificate) ApplyIssuance(number, grade, url string, now time.Time) {
	c.Number = number
	c.Grade = grade
	c.URL = url
	c.Generated = true
	issued := now
	c.IssuedAt = &issued
	c.UpdatedAt = now
}

// CanRevoke rejects revocation of a certificate that was never issued or is
// already revoked.
func (c *Certificate) CanRevoke() error {
	if !c.Generated {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"certificate is not currently issued")
	}
	return nil
}

// ApplyRevocation clears the issuance fields. The row survives so the
// member's certificate history anchor stays in place, and the rendered
// artifact is deliberately left untouched.
func (c *Certificate) ApplyRevocation(now time.Time) {
	c.Number = ""
	c.Grade = ""
	c.URL = ""
	c.Generated = false
	c.IssuedAt = nil
	c.UpdatedAt = now
}

// Clone returns a copy safe to hand out of a store.
func (c *Certificate) Clone() *Certificate {
	clone := *c
	if c.IssuedAt != nil {
		issued := *c.IssuedAt
		clone.IssuedAt = &issued
	}
	return &clone
}
