package providers

import (
	"github.com/samber/do/v2"

	"github.com/talkboard/talkboard-web/internal/dto"
	"github.com/talkboard/talkboard-web/internal/logger"
	"github.com/talkboard/talkboard-web/internal/payment"
	"github.com/talkboard/talkboard-web/internal/role"
	"github.com/talkboard/talkboard-web/internal/routes"
	"github.com/talkboard/talkboard-web/internal/service"
	"github.com/talkboard/talkboard-web/internal/session"
	"github.com/talkboard/talkboard-web/internal/upload"
	"github.com/talkboard/talkboard-web/internal/validation"
)

// ProvideUserDirectory provides the cached user lookup.
func ProvideUserDirectory(i do.Injector) (*service.UserDirectory, error) {
	forum := do.MustInvoke[*ForumClientHandle](i)
	cache := do.MustInvoke[*QueryCacheHandle](i)
	return service.NewUserDirectory(forum.Client, cache.Client), nil
}

// ProvideEnricher provides the author enricher.
func ProvideEnricher(i do.Injector) (*dto.Enricher, error) {
	users := do.MustInvoke[*service.UserDirectory](i)
	log := do.MustInvoke[*logger.Logger](i)
	return dto.NewEnricher(users, log.Component("dto").Logger), nil
}

// ProvideRoleResolver provides the role resolver.
func ProvideRoleResolver(i do.Injector) (*role.Resolver, error) {
	forum := do.MustInvoke[*ForumClientHandle](i)
	cache := do.MustInvoke[*QueryCacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return role.NewResolver(cache.Client, forum.Client, log.Component("role").Logger), nil
}

// ProvideContentService provides the content service.
func ProvideContentService(i do.Injector) (*service.ContentService, error) {
	forum := do.MustInvoke[*ForumClientHandle](i)
	cache := do.MustInvoke[*QueryCacheHandle](i)
	index := do.MustInvoke[*TagIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewContentService(forum.Client, forum.Public(), cache.Client, index.TagIndex,
		sseHandle.Manager, validator, log.Component("content").Logger), nil
}

// ProvidePostService provides the post service.
func ProvidePostService(i do.Injector) (*service.PostService, error) {
	forum := do.MustInvoke[*ForumClientHandle](i)
	cache := do.MustInvoke[*QueryCacheHandle](i)
	content := do.MustInvoke[*service.ContentService](i)
	users := do.MustInvoke[*service.UserDirectory](i)
	enricher := do.MustInvoke[*dto.Enricher](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPostService(forum.Client, forum.Public(), cache.Client, content, users,
		enricher, validator, log.Component("posts").Logger), nil
}

// ProvideCommentService provides the comment service.
func ProvideCommentService(i do.Injector) (*service.CommentService, error) {
	forum := do.MustInvoke[*ForumClientHandle](i)
	cache := do.MustInvoke[*QueryCacheHandle](i)
	posts := do.MustInvoke[*service.PostService](i)
	enricher := do.MustInvoke[*dto.Enricher](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCommentService(forum.Client, posts, cache.Client, enricher, sseHandle.Manager,
		validator, log.Component("comments").Logger), nil
}

// ProvideAdminService provides the admin service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	forum := do.MustInvoke[*ForumClientHandle](i)
	cache := do.MustInvoke[*QueryCacheHandle](i)
	roles := do.MustInvoke[*role.Resolver](i)
	content := do.MustInvoke[*service.ContentService](i)
	enricher := do.MustInvoke[*dto.Enricher](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAdminService(forum.Client, cache.Client, roles, content, enricher, sseHandle.Manager,
		validator, log.Component("admin").Logger), nil
}

// ProvideDashboardService provides the dashboard service.
func ProvideDashboardService(i do.Injector) (*service.DashboardService, error) {
	table := do.MustInvoke[*routes.Table](i)
	roles := do.MustInvoke[*role.Resolver](i)
	users := do.MustInvoke[*service.UserDirectory](i)
	posts := do.MustInvoke[*service.PostService](i)
	enricher := do.MustInvoke[*dto.Enricher](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewDashboardService(table, roles, users, posts, enricher, log.Component("dashboard").Logger), nil
}

// ProvideMembershipService provides the membership service.
func ProvideMembershipService(i do.Injector) (*service.MembershipService, error) {
	forum := do.MustInvoke[*ForumClientHandle](i)
	cache := do.MustInvoke[*QueryCacheHandle](i)
	users := do.MustInvoke[*service.UserDirectory](i)
	payments := do.MustInvoke[*payment.Client](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMembershipService(forum.Client, cache.Client, users, payments, validator,
		log.Component("membership").Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	identityHandle := do.MustInvoke[*IdentityHandle](i)
	sessions := do.MustInvoke[*session.Manager](i)
	forum := do.MustInvoke[*ForumClientHandle](i)
	uploader := do.MustInvoke[*upload.Client](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(identityHandle.Client, sessions, forum.Client, uploader, validator,
		log.Component("auth").Logger), nil
}
