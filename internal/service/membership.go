package service

import (
	"context"
	"log/slog"

	"github.com/talkboard/talkboard-web/internal/apiclient"
	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/payment"
	"github.com/talkboard/talkboard-web/internal/query"
	"github.com/talkboard/talkboard-web/internal/validation"
)

// MembershipService sells membership. Payment happens in the browser against
// the payment provider; the gateway opens the intent and grants membership
// only after the provider confirms it.
type MembershipService struct {
	forum     Forum
	cache     *query.Client
	users     *UserDirectory
	payments  *payment.Client
	validator *validation.Validator
	logger    *slog.Logger
}

// NewMembershipService creates a membership service.
func NewMembershipService(
	forum Forum,
	cache *query.Client,
	users *UserDirectory,
	payments *payment.Client,
	validator *validation.Validator,
	logger *slog.Logger,
) *MembershipService {
	return &MembershipService{
		forum:     forum,
		cache:     cache,
		users:     users,
		payments:  payments,
		validator: validator,
		logger:    logger,
	}
}

// MembershipView is the membership page.
type MembershipView struct {
	Member bool         `json:"member"`
	Badge  domain.Badge `json:"badge"`
	Price  int64        `json:"price"`
	Limit  int          `json:"free_post_limit"`
}

// View returns the membership state of the request's session.
func (s *MembershipService) View(ctx context.Context) (*MembershipView, error) {
	email, err := requireEmail(ctx)
	if err != nil {
		return nil, err
	}
	view := &MembershipView{Badge: domain.BadgeBronze, Price: payment.MembershipPrice, Limit: domain.FreePostLimit}

	member, err := s.isMember(ctx, email)
	if err != nil {
		return nil, err
	}
	if member {
		view.Member = true
		view.Badge = domain.BadgeGold
	}
	return view, nil
}

// CreateIntent opens a membership payment and returns its client secret.
func (s *MembershipService) CreateIntent(ctx context.Context) (*apiclient.PaymentIntent, error) {
	email, err := requireEmail(ctx)
	if err != nil {
		return nil, err
	}
	member, err := s.isMember(ctx, email)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, errors.Conflict("You are already a member.")
	}
	return s.forum.CreatePaymentIntent(ctx, email)
}

// ConfirmRequest is the input of Confirm.
type ConfirmRequest struct {
	IntentID string `json:"payment_intent_id" validate:"required,startswith=pi_"`
}

// Confirm grants membership once the payment intent has succeeded.
func (s *MembershipService) Confirm(ctx context.Context, req ConfirmRequest) error {
	email, err := requireEmail(ctx)
	if err != nil {
		return err
	}
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	member, err := s.isMember(ctx, email)
	if err != nil {
		return err
	}
	if member {
		return errors.Conflict("You are already a member.")
	}

	intent, err := s.payments.Confirm(ctx, req.IntentID, email)
	if err != nil {
		return err
	}

	_, err = query.Mutate(ctx, s.cache, query.Mutation{
		Invalidates: []query.Key{userKey(email)},
		Dedupe:      "membership:" + email,
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.forum.UpgradeMembership(ctx, email)
	})
	if err != nil {
		return err
	}

	s.logger.Info("membership granted", "email", email, "intent", intent.ID)
	return nil
}

func (s *MembershipService) isMember(ctx context.Context, email string) (bool, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsMember(), nil
}
