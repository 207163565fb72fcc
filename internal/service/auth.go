package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/guard"
	"github.com/talkboard/talkboard-web/internal/identity"
	"github.com/talkboard/talkboard-web/internal/normalize"
	"github.com/talkboard/talkboard-web/internal/session"
	"github.com/talkboard/talkboard-web/internal/upload"
	"github.com/talkboard/talkboard-web/internal/validation"
)

// AuthService signs browsers in and out.
type AuthService struct {
	provider  identity.Provider
	sessions  *session.Manager
	forum     Forum
	uploader  *upload.Client
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(
	provider identity.Provider,
	sessions *session.Manager,
	forum Forum,
	uploader *upload.Client,
	validator *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		provider:  provider,
		sessions:  sessions,
		forum:     forum,
		uploader:  uploader,
		validator: validator,
		logger:    logger,
	}
}

// AuthResult is the outcome of a sign-in or registration.
type AuthResult struct {
	Profile  domain.Profile `json:"profile"`
	Redirect string         `json:"redirect"`
	Cookie   *http.Cookie   `json:"-"`
}

// SignInRequest is the input of SignIn.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	// From is the page the browser was sent away from.
	From string `json:"from,omitempty"`
}

// SignIn checks a password with the identity provider and starts a session.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest, client session.ClientInfo) (*AuthResult, error) {
	req.Email = normalize.Email(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	creds, err := s.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	sess, cookie, err := s.sessions.Start(ctx, creds, client)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Profile:  sess.Profile(),
		Redirect: guard.ReturnPath(req.From),
		Cookie:   cookie,
	}, nil
}

// RegisterRequest is the input of Register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=60"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	From     string `json:"from,omitempty"`

	PhotoName string `json:"-"`
	Photo     []byte `json:"-"`
}

// Register creates an identity account, signs it in, sets its display name
// and photo and registers the user with the forum API. The photo is uploaded
// first so a rejected photo does not leave an account behind.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, client session.ClientInfo) (*AuthResult, error) {
	req.Email = normalize.Email(req.Email)
	req.Name = normalize.Title(req.Name)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var photoURL string
	if len(req.Photo) > 0 {
		hosted, err := s.uploader.Upload(ctx, req.PhotoName, req.Photo)
		if err != nil {
			return nil, err
		}
		photoURL = hosted.URL
	}

	creds, err := s.provider.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	sess, cookie, err := s.sessions.Start(ctx, creds, client)
	if err != nil {
		return nil, err
	}

	updated, err := s.provider.UpdateProfile(ctx, creds.IDToken, req.Name, photoURL)
	if err != nil {
		s.logger.Warn("failed to set profile after sign-up", "email", req.Email, "error", err)
	} else if err := s.sessions.UpdateProfile(ctx, updated); err != nil {
		s.logger.Warn("failed to store profile after sign-up", "email", req.Email, "error", err)
	} else {
		sess = session.FromContext(ctx).Session
	}

	err = s.forum.CreateUser(ctx, domain.NewUser(req.Email, req.Name, photoURL, time.Now()))
	if err != nil && !errors.Is(err, errors.ErrConflict) && !errors.Is(err, errors.ErrAlreadyExists) {
		return nil, err
	}

	s.logger.Info("account registered", "email", req.Email, "photo", photoURL != "")
	return &AuthResult{
		Profile:  sess.Profile(),
		Redirect: guard.ReturnPath(req.From),
		Cookie:   cookie,
	}, nil
}

// SignOut ends the request's session and returns the cookie that clears it.
func (s *AuthService) SignOut(ctx context.Context) *http.Cookie {
	email := session.FromContext(ctx).Email()
	cookie := s.sessions.SignOut(ctx)
	if email != "" {
		s.logger.Info("signed out", "email", email)
	}
	return cookie
}
