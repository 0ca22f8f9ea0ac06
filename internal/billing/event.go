// Package billing turns completed payments into subscription activations
// and, when configured, automatic certificate issuance.
package billing

// PaymentEvent is the payload delivered by the payment provider, either as
// a Kafka record or a webhook body. UserID and BillingEmail identify the
// payer; at least one must be set.
type PaymentEvent struct {
	UserID       string  `json:"userId"`
	BillingEmail string  `json:"billingEmail"`
	ProductRef   string  `json:"productRef"`
	OrderID      string  `json:"orderId"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}
