package apiclient

import (
	"context"
	"strings"
)

// PaymentIntent is the client half of a payment intent created by the forum API.
type PaymentIntent struct {
	ClientSecret string `json:"clientSecret"`
}

// ID derives the intent ID from its client secret ("pi_123_secret_abc" -> "pi_123").
func (p PaymentIntent) ID() string {
	id, _, _ := strings.Cut(p.ClientSecret, "_secret_")
	return id
}

// CreatePaymentIntent asks the forum API to open a membership payment for email.
func (c *Client) CreatePaymentIntent(ctx context.Context, email string) (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := c.Post(ctx, "/create-payment-intent", map[string]string{"email": email}, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}
