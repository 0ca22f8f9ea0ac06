package billing

import (
	"context"
	"log/slog"
	"time"

	billingmetrics "verdant/internal/billing/metrics"
	certmodels "verdant/internal/certificate/models"
	"verdant/internal/eligibility"
	platformredis "verdant/internal/platform/redis"
	regmodels "verdant/internal/registration/models"
	submodels "verdant/internal/subscription/models"
	dErrors "verdant/pkg/domain-errors"
)

// Processed orders are remembered long past any plausible redelivery window.
const orderDedupTTL = 30 * 24 * time.Hour

// RegistrationResolver maps a payment's payer identifiers onto a
// registration.
type RegistrationResolver interface {
	GetByUserID(ctx context.Context, userID string) (*regmodels.Registration, error)
	GetByEmail(ctx context.Context, email string) (*regmodels.Registration, error)
}

// SubscriptionActivator starts a member's subscription.
type SubscriptionActivator interface {
	Activate(ctx context.Context, userID, plan string, price float64, currency string) (*submodels.Subscription, error)
}

// EligibilityChecker is the certification gate consulted before automatic
// issuance.
type EligibilityChecker interface {
	Check(ctx context.Context, userID string) (eligibility.Result, error)
}

// CertificateIssuer issues the certificate on the automatic path.
type CertificateIssuer interface {
	Issue(ctx context.Context, userID, grade string, regenerate bool) (*certmodels.Certificate, error)
}

// Orchestrator reacts to completed payments. A payment that cannot be acted
// on (unknown product, duplicate order, unresolvable payer) is logged and
// dropped rather than retried: payment providers redeliver on their own
// schedule, and activation is idempotent when they do.
type Orchestrator struct {
	plans         map[string]string
	registrations RegistrationResolver
	subscriptions SubscriptionActivator
	gate          EligibilityChecker
	certificates  CertificateIssuer
	dedup         *platformredis.Client
	autoGrading   bool
	logger        *slog.Logger
	metrics       *billingmetrics.Metrics
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *billingmetrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithDedup enables redis-backed duplicate order suppression. Dedup is
// best-effort: a redis outage lets duplicates through rather than blocking
// payments.
func WithDedup(client *platformredis.Client) Option {
	return func(o *Orchestrator) { o.dedup = client }
}

// WithAutoGrading makes eligible members receive a certificate immediately
// after their subscription activates.
func WithAutoGrading(gate EligibilityChecker, certificates CertificateIssuer) Option {
	return func(o *Orchestrator) {
		o.autoGrading = true
		o.gate = gate
		o.certificates = certificates
	}
}

// NewOrchestrator builds the payment orchestrator. plans maps the payment
// provider's product references onto plan names.
func NewOrchestrator(
	plans map[string]string,
	registrations RegistrationResolver,
	subscriptions SubscriptionActivator,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		plans:         plans,
		registrations: registrations,
		subscriptions: subscriptions,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandlePaymentCompleted processes one completed payment.
func (o *Orchestrator) HandlePaymentCompleted(ctx context.Context, evt PaymentEvent) error {
	plan, known := o.plans[evt.ProductRef]
	if !known {
		o.logger.InfoContext(ctx, "ignoring payment for unrecognized product",
			"product_ref", evt.ProductRef, "order_id", evt.OrderID)
		o.incrementUnknownProducts()
		return nil
	}

	if o.isDuplicate(ctx, evt.OrderID) {
		o.logger.InfoContext(ctx, "ignoring duplicate payment order", "order_id", evt.OrderID)
		o.incrementDuplicateOrders()
		return nil
	}

	userID, ok := o.resolveUser(ctx, evt)
	if !ok {
		o.incrementUnresolved()
		return nil
	}

	if _, err := o.subscriptions.Activate(ctx, userID, plan, evt.Amount, evt.Currency); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate subscription")
	}
	o.incrementProcessed()

	o.logger.InfoContext(ctx, "payment activated subscription",
		"user_id", userID, "plan", plan, "order_id", evt.OrderID)

	if o.autoGrading {
		o.maybeIssueCertificate(ctx, userID)
	}
	return nil
}

// isDuplicate claims the order ID in redis. The first claimer proceeds.
func (o *Orchestrator) isDuplicate(ctx context.Context, orderID string) bool {
	if o.dedup == nil || orderID == "" {
		return false
	}
	claimed, err := o.dedup.SetNX(ctx, "verdant:billing:orders:"+orderID, "1", orderDedupTTL).Result()
	if err != nil {
		o.logger.WarnContext(ctx, "order dedup unavailable", "order_id", orderID, "error", err)
		return false
	}
	return !claimed
}

// resolveUser maps the event onto a provisioned member account, preferring
// the explicit user ID over the billing email.
func (o *Orchestrator) resolveUser(ctx context.Context, evt PaymentEvent) (string, bool) {
	if evt.UserID != "" {
		if _, err := o.registrations.GetByUserID(ctx, evt.UserID); err != nil {
			o.logger.WarnContext(ctx, "payment references unknown account",
				"user_id", evt.UserID, "order_id", evt.OrderID)
			return "", false
		}
		return evt.UserID, true
	}

	if evt.BillingEmail == "" {
		o.logger.WarnContext(ctx, "payment carries no payer identity", "order_id", evt.OrderID)
		return "", false
	}

	reg, err := o.registrations.GetByEmail(ctx, evt.BillingEmail)
	if err != nil {
		o.logger.WarnContext(ctx, "payment email matches no registration",
			"billing_email", evt.BillingEmail, "order_id", evt.OrderID)
		return "", false
	}
	if reg.UserID == "" {
		o.logger.WarnContext(ctx, "payment for unprovisioned registration",
			"registration_id", reg.ID, "order_id", evt.OrderID)
		return "", false
	}
	return reg.UserID, true
}

// maybeIssueCertificate runs the gate and issues on success. Failures on
// this path are logged and dropped; the subscription stays active and an
// administrator can issue manually.
func (o *Orchestrator) maybeIssueCertificate(ctx context.Context, userID string) {
	result, err := o.gate.Check(ctx, userID)
	if err != nil {
		o.logger.ErrorContext(ctx, "eligibility check failed", "user_id", userID, "error", err)
		return
	}
	if !result.Eligible {
		o.logger.InfoContext(ctx, "member not eligible for automatic issuance",
			"user_id", userID, "reason", result.Reason)
		return
	}

	if _, err := o.certificates.Issue(ctx, userID, certmodels.GradeAuto, false); err != nil {
		o.logger.ErrorContext(ctx, "automatic certificate issuance failed",
			"user_id", userID, "error", err)
		return
	}
	o.incrementAutoIssued()
}

func (o *Orchestrator) incrementProcessed() {
	if o.metrics != nil {
		o.metrics.Processed.Inc()
	}
}

func (o *Orchestrator) incrementUnknownProducts() {
	if o.metrics != nil {
		o.metrics.UnknownProducts.Inc()
	}
}

func (o *Orchestrator) incrementDuplicateOrders() {
	if o.metrics != nil {
		o.metrics.DuplicateOrders.Inc()
	}
}

func (o *Orchestrator) incrementUnresolved() {
	if o.metrics != nil {
		o.metrics.Unresolved.Inc()
	}
}

func (o *Orchestrator) incrementAutoIssued() {
	if o.metrics != nil {
		o.metrics.AutoIssued.Inc()
	}
}
