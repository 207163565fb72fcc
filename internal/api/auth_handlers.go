package api

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/service"
)

// maxPhotoBytes bounds how much of an uploaded photo is read into memory.
// The upload client applies its own, usually smaller, limit.
const maxPhotoBytes = 16 << 20

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "signIn",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signin",
		Summary:     "Sign in",
		Description: "Checks an email and password with the identity provider and starts a session cookie",
		Tags:        []string{"Authentication"},
	}, s.handleSignIn)

	huma.Register(s.api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/register",
		Summary:     "Register",
		Description: "Creates an account from a multipart form (name, email, password, from and an optional photo), signs it in and registers it with the forum",
		Tags:        []string{"Authentication"},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "signOut",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signout",
		Summary:     "Sign out",
		Description: "Ends the current session and clears its cookie",
		Tags:        []string{"Authentication"},
	}, s.handleSignOut)
}

// SignInBody is the request body for signing in.
type SignInBody struct {
	Email    string `json:"email,omitempty" doc:"Account email"`
	Password string `json:"password,omitempty" doc:"Account password"`
	From     string `json:"from,omitempty" doc:"Page to return to after signing in"`
}

// SignInInput wraps the sign-in request for Huma.
type SignInInput struct {
	Body SignInBody
}

// AuthOutput carries the session cookie and the signed-in profile.
type AuthOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      AuthResponse
}

// AuthResponse is the body of a successful sign-in or registration.
type AuthResponse struct {
	Profile  domain.Profile `json:"profile" doc:"Signed-in profile"`
	Redirect string         `json:"redirect" doc:"Where the browser should go next"`
}

func authOutput(res *service.AuthResult) *AuthOutput {
	return &AuthOutput{
		SetCookie: *res.Cookie,
		Body:      AuthResponse{Profile: res.Profile, Redirect: res.Redirect},
	}
}

func (s *Server) handleSignIn(ctx context.Context, input *SignInInput) (*AuthOutput, error) {
	client := clientInfo(ctx)
	if s.deps.SignInLimiter != nil && !s.deps.SignInLimiter.Allow(client.IPAddress) {
		s.logger.Warn("Rate limit exceeded", "ip", client.IPAddress, "path", "/api/v1/auth/signin")
		return nil, errors.FromStatus(http.StatusTooManyRequests, "Too many sign-in attempts. Please try again later.")
	}

	res, err := s.services.Auth.SignIn(ctx, service.SignInRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
		From:     input.Body.From,
	}, client)
	if err != nil {
		return nil, err
	}
	return authOutput(res), nil
}

// RegisterForm is the file part of a registration. The text fields name,
// email, password and from are read from the form values.
type RegisterForm struct {
	Photo huma.FormFile `form:"photo" required:"false" doc:"Profile photo (PNG, JPEG, GIF or WebP)"`
}

// RegisterInput wraps the multipart registration form for Huma.
type RegisterInput struct {
	RawBody huma.MultipartFormFiles[RegisterForm]
}

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	form := input.RawBody.Form
	if form == nil {
		return nil, errors.Validation("Registration must be sent as a multipart form.")
	}

	req := service.RegisterRequest{
		Name:     formValue(form.Value, "name"),
		Email:    formValue(form.Value, "email"),
		Password: formValue(form.Value, "password"),
		From:     formValue(form.Value, "from"),
	}

	if files := form.File["photo"]; len(files) > 0 && files[0].Size > 0 {
		f, err := files[0].Open()
		if err != nil {
			return nil, errors.Validation("Could not read the uploaded photo.")
		}
		defer f.Close() //nolint:errcheck // read-only multipart part
		data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes+1))
		if err != nil {
			return nil, errors.Validation("Could not read the uploaded photo.")
		}
		if len(data) > maxPhotoBytes {
			return nil, errors.Validation("The photo is too large.")
		}
		req.PhotoName = files[0].Filename
		req.Photo = data
	}

	res, err := s.services.Auth.Register(ctx, req, clientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return authOutput(res), nil
}

func formValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// SignOutOutput clears the session cookie.
type SignOutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      RedirectResponse
}

// RedirectResponse tells the browser where to go next.
type RedirectResponse struct {
	Redirect string `json:"redirect" doc:"Where the browser should go next"`
}

func (s *Server) handleSignOut(ctx context.Context, _ *struct{}) (*SignOutOutput, error) {
	cookie := s.services.Auth.SignOut(ctx)
	return &SignOutOutput{
		SetCookie: *cookie,
		Body:      RedirectResponse{Redirect: "/"},
	}, nil
}
