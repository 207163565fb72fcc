package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/talkboard/talkboard-web/internal/apiclient"
	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/identity"
	"github.com/talkboard/talkboard-web/internal/logger"
	"github.com/talkboard/talkboard-web/internal/query"
	"github.com/talkboard/talkboard-web/internal/role"
	"github.com/talkboard/talkboard-web/internal/session"
)

const refreshSkew = 2 * time.Minute

type globalOptions struct {
	apiBaseURL      string
	identityURL     string
	identityToken   string
	identityAPIKey  string
	credentialsPath string
	verbose         bool
}

// providerFactory builds the identity provider. Tests replace it with a fake.
type providerFactory func(opts *globalOptions, log *logger.Logger) identity.Provider

// app is the state shared by every subcommand.
type app struct {
	opts     *globalOptions
	log      *logger.Logger
	provider identity.Provider
	creds    *session.FileCredentials
	forum    *apiclient.Client
	cache    *query.Client
	roles    *role.Resolver
}

func newRootCmd(newProvider providerFactory) *cobra.Command {
	if newProvider == nil {
		newProvider = func(opts *globalOptions, log *logger.Logger) identity.Provider {
			return identity.New(identity.Config{
				BaseURL:  opts.identityURL,
				TokenURL: opts.identityToken,
				APIKey:   opts.identityAPIKey,
			}, log.Logger)
		}
	}

	opts := &globalOptions{}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "talkctl",
		Short: "Talkboard CLI - forum client and moderation tool",
		Long: `talkctl signs in to Talkboard and works with the forum API from the terminal.
Admins can search users, change roles, moderate reported comments and publish
announcements and tags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(newProvider)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiBaseURL, "api-base-url", envOr("API_BASE_URL", "http://localhost:5000"), "Forum API base URL")
	flags.StringVar(&opts.identityURL, "identity-url", envOr("IDENTITY_BASE_URL", ""), "Identity provider base URL")
	flags.StringVar(&opts.identityToken, "identity-token-url", envOr("IDENTITY_TOKEN_URL", ""), "Identity provider token URL")
	flags.StringVar(&opts.identityAPIKey, "identity-api-key", envOr("IDENTITY_API_KEY", ""), "Identity provider API key")
	flags.StringVar(&opts.credentialsPath, "credentials", defaultCredentialsPath(), "Credentials file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log requests to stderr")

	root.AddCommand(newLoginCmd(a))
	root.AddCommand(newLogoutCmd(a))
	root.AddCommand(newWhoAmICmd(a))
	root.AddCommand(newPostsCmd(a))
	root.AddCommand(newAdminCmd(a))

	return root
}

func (a *app) init(newProvider providerFactory) error {
	a.log = logger.Discard()
	if a.opts.verbose {
		a.log = logger.New(logger.Config{Writer: os.Stderr, Level: logger.ParseLevel("debug")})
	}

	a.provider = newProvider(a.opts, a.log)
	a.creds = session.NewFileCredentials(a.opts.credentialsPath, a.provider, refreshSkew, nil)

	forum, err := apiclient.New(apiclient.Options{
		BaseURL:        a.opts.apiBaseURL,
		Credentials:    a.creds.Token,
		OnUnauthorized: a.creds.HandleUnauthorized,
		Logger:         a.log.Component("apiclient").Logger,
		UserAgent:      "talkctl/1.0",
	})
	if err != nil {
		return err
	}
	a.forum = forum
	a.cache = query.New(query.Options{Logger: a.log.Component("query").Logger})
	a.roles = role.NewResolver(a.cache, forum, a.log.Component("role").Logger)
	return nil
}

func (a *app) close() {
	if a.forum != nil {
		a.forum.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
}

// signedIn returns a context carrying the saved credentials as the session,
// so the role resolver sees the CLI user the way it sees a browser session.
func (a *app) signedIn(ctx context.Context) (context.Context, *identity.Credentials, error) {
	creds, err := a.creds.Load()
	if err != nil {
		return nil, nil, err
	}
	st := session.State{Session: &domain.Session{
		UID:         creds.UID,
		Email:       creds.Email,
		DisplayName: creds.DisplayName,
		PhotoURL:    creds.PhotoURL,
	}}
	return session.WithState(ctx, st), creds, nil
}

// requireAdmin applies the admin guard to the CLI user.
func (a *app) requireAdmin(ctx context.Context) (context.Context, *identity.Credentials, error) {
	ctx, creds, err := a.signedIn(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := a.roles.Require(ctx); err != nil {
		return nil, nil, err
	}
	return ctx, creds, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultCredentialsPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "talkboard", "credentials.json")
	}
	return filepath.Join(".talkboard", "credentials.json")
}
