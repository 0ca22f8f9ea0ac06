// Package notification bridges domain events to the notification sink.
// Every dispatch is best-effort: a failed email or in-app write is logged
// and swallowed, because notification transport must never fail the
// operation that triggered it.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	certmodels "verdant/internal/certificate/models"
	"verdant/internal/notification/models"
	"verdant/internal/notification/service"
	regmodels "verdant/internal/registration/models"
)

// EmailSender delivers an email. Implementations own transport, templating
// stays here.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogEmailSender logs emails instead of sending them. Development default.
type LogEmailSender struct {
	Logger *slog.Logger
}

func (s LogEmailSender) Send(ctx context.Context, to, subject, _ string) error {
	s.Logger.InfoContext(ctx, "email suppressed", "to", to, "subject", subject)
	return nil
}

// Notifier fans domain events out to email and in-app notifications.
type Notifier struct {
	inApp      *service.Service
	email      EmailSender
	adminEmail string
	logger     *slog.Logger
}

func NewNotifier(inApp *service.Service, email EmailSender, adminEmail string, logger *slog.Logger) *Notifier {
	return &Notifier{inApp: inApp, email: email, adminEmail: adminEmail, logger: logger}
}

// RegistrationRecommended alerts administrators that a registration awaits
// final approval.
func (n *Notifier) RegistrationRecommended(ctx context.Context, reg *regmodels.Registration) {
	if n.adminEmail == "" {
		return
	}
	n.sendEmail(ctx, n.adminEmail,
		"Registration awaiting approval",
		fmt.Sprintf("%s (%s) was recommended for approval.", reg.Company, reg.Email))
}

// RegistrationRejected tells the registrant why their application failed.
func (n *Notifier) RegistrationRejected(ctx context.Context, reg *regmodels.Registration) {
	n.sendEmail(ctx, reg.Email,
		"Your registration was not approved",
		fmt.Sprintf("Your registration for %s was rejected: %s", reg.Company, reg.RejectionReason))
}

// RegistrationApproved welcomes the new member by email and in-app.
func (n *Notifier) RegistrationApproved(ctx context.Context, reg *regmodels.Registration) {
	n.sendEmail(ctx, reg.Email,
		"Your registration was approved",
		fmt.Sprintf("Welcome aboard. Your registration for %s is approved.", reg.Company))

	if reg.UserID == "" {
		return
	}
	n.createInApp(ctx, reg.UserID,
		"Registration approved",
		"Your company registration has been approved.",
		models.TypeRegistration, "")
}

// AssessmentInvited sends the one-time invitation to start the assessment.
func (n *Notifier) AssessmentInvited(ctx context.Context, reg *regmodels.Registration) {
	n.sendEmail(ctx, reg.Email,
		"Start your sustainability assessment",
		"Your account is ready. Complete the assessment to qualify for certification.")

	if reg.UserID == "" {
		return
	}
	n.createInApp(ctx, reg.UserID,
		"Assessment ready",
		"Complete your sustainability assessment to qualify for certification.",
		models.TypeAssessment, "/assessment")
}

// CertificateIssued tells the member their certificate is ready.
func (n *Notifier) CertificateIssued(ctx context.Context, cert *certmodels.Certificate) {
	n.createInApp(ctx, cert.UserID,
		"Certificate issued",
		fmt.Sprintf("Your certificate %s (grade %s) has been generated.", cert.Number, cert.Grade),
		models.TypeCertificate, "/certificate")
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) {
	if err := n.email.Send(ctx, to, subject, body); err != nil {
		n.logger.ErrorContext(ctx, "email dispatch failed",
			"to", to, "subject", subject, "error", err)
	}
}

func (n *Notifier) createInApp(ctx context.Context, userID, title, message string, ntype models.Type, link string) {
	if _, err := n.inApp.CreateInApp(ctx, userID, title, message, ntype, link); err != nil {
		n.logger.ErrorContext(ctx, "in-app notification failed",
			"user_id", userID, "title", title, "error", err)
	}
}
