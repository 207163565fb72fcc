// Package payment confirms membership payments with the payment provider.
//
// The forum API creates the payment intent and hands its client secret to the
// browser's hosted card form. Before membership is granted the gateway asks the
// provider directly whether the intent actually succeeded.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/talkboard/talkboard-web/internal/errors"
)

// StatusSucceeded is the status of a completed payment intent.
const StatusSucceeded = "succeeded"

// MembershipPrice is the membership price in the smallest currency unit.
const MembershipPrice = 1000

// Intent is a payment intent as reported by the provider.
type Intent struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
}

// Owner returns the email the intent was opened for. The forum API records it
// in the intent metadata; older intents only carry the receipt email.
func (i *Intent) Owner() string {
	if email := strings.TrimSpace(i.Metadata["email"]); email != "" {
		return email
	}
	return strings.TrimSpace(i.ReceiptEmail)
}

// Client reads payment intents.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a payment client.
func New(baseURL, secretKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Intent fetches the intent with the given ID.
func (c *Client) Intent(ctx context.Context, id string) (*Intent, error) {
	if id == "" {
		return nil, errors.Validation("payment intent is required")
	}
	if c.baseURL == "" || c.secretKey == "" {
		return nil, errors.Unavailable(nil, "Payments are not configured.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payment_intents/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Unavailable(err, "Payment provider unreachable.")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Unavailable(err, "Payment provider unreachable.")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			// The provider rejected the gateway's key, not the user.
			c.logger.Error("payment provider rejected credentials",
				slog.Int("status", resp.StatusCode), slog.String("message", e.Error.Message))
			return nil, errors.Unavailable(nil, "Payments are temporarily unavailable.")
		}
		return nil, errors.FromStatus(resp.StatusCode, e.Error.Message)
	}

	var intent Intent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, errors.Unavailable(err, "Payment provider returned an invalid response.")
	}
	return &intent, nil
}

// Confirm fetches the intent and checks that it was opened for email and
// succeeded for at least the membership price.
func (c *Client) Confirm(ctx context.Context, id, email string) (*Intent, error) {
	intent, err := c.Intent(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner := intent.Owner(); owner == "" || !strings.EqualFold(owner, email) {
		c.logger.Warn("payment intent not opened for caller",
			slog.String("intent", id), slog.String("email", email), slog.String("owner", owner))
		return intent, errors.Forbidden("This payment belongs to another account.")
	}
	if intent.Status != StatusSucceeded {
		c.logger.Info("payment not completed", slog.String("intent", id), slog.String("status", intent.Status))
		return intent, errors.PaymentIncomplete(intent.Status)
	}
	if intent.Amount < MembershipPrice {
		return intent, errors.PaymentIncomplete("amount_too_small")
	}
	return intent, nil
}
