package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/talkboard/talkboard-web/internal/service"
)

func (s *Server) registerMembershipRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createPaymentIntent",
		Method:      http.MethodPost,
		Path:        "/api/v1/membership/intent",
		Summary:     "Start membership payment",
		Description: "Opens a membership payment and returns the client secret the card form confirms",
		Tags:        []string{"Membership"},
		Security:    []map[string][]string{{"session": {}}},
	}, s.handleCreateIntent)

	huma.Register(s.api, huma.Operation{
		OperationID: "confirmMembership",
		Method:      http.MethodPost,
		Path:        "/api/v1/membership/confirm",
		Summary:     "Confirm membership",
		Description: "Grants membership once the payment provider reports the intent as succeeded",
		Tags:        []string{"Membership"},
		Security:    []map[string][]string{{"session": {}}},
	}, s.handleConfirmMembership)
}

// PaymentIntentOutput carries the client secret of a payment intent.
type PaymentIntentOutput struct {
	Body struct {
		ClientSecret string `json:"clientSecret" doc:"Client secret for the card form"`
	}
}

func (s *Server) handleCreateIntent(ctx context.Context, _ *struct{}) (*PaymentIntentOutput, error) {
	intent, err := s.services.Membership.CreateIntent(ctx)
	if err != nil {
		return nil, err
	}
	out := &PaymentIntentOutput{}
	out.Body.ClientSecret = intent.ClientSecret
	return out, nil
}

// ConfirmMembershipInput names the payment intent to check.
type ConfirmMembershipInput struct {
	Body struct {
		IntentID string `json:"payment_intent_id,omitempty" doc:"Payment intent ID (pi_...)"`
	}
}

func (s *Server) handleConfirmMembership(ctx context.Context, input *ConfirmMembershipInput) (*RedirectOutput, error) {
	if err := s.services.Membership.Confirm(ctx, service.ConfirmRequest{IntentID: input.Body.IntentID}); err != nil {
		return nil, err
	}
	return &RedirectOutput{Body: RedirectResponse{Redirect: "/dashboard/profile"}}, nil
}

// RedirectOutput wraps RedirectResponse for Huma.
type RedirectOutput struct {
	Body RedirectResponse
}
