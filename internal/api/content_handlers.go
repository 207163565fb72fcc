package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/search"
)

func (s *Server) registerContentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/suggest",
		Summary:     "Suggest tags",
		Description: "Returns tags whose names match a partial, possibly misspelled, name",
		Tags:        []string{"Tags"},
	}, s.handleSuggestTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAnnouncements",
		Method:      http.MethodGet,
		Path:        "/api/v1/announcements",
		Summary:     "List announcements",
		Tags:        []string{"Announcements"},
	}, s.handleListAnnouncements)
}

// TagsOutput lists tags.
type TagsOutput struct {
	Body struct {
		Tags []domain.Tag `json:"tags" doc:"Tags"`
	}
}

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*TagsOutput, error) {
	tags, err := s.services.Content.Tags(ctx)
	if err != nil {
		return nil, err
	}
	out := &TagsOutput{}
	out.Body.Tags = append([]domain.Tag{}, tags...)
	return out, nil
}

// SuggestTagsInput is a partial tag name.
type SuggestTagsInput struct {
	Query string `query:"q" doc:"Partial tag name"`
	Limit int    `query:"limit" minimum:"1" maximum:"50" default:"10" doc:"Maximum number of suggestions"`
}

// SuggestTagsOutput lists tag suggestions, best match first.
type SuggestTagsOutput struct {
	Body struct {
		Tags []search.TagHit `json:"tags" doc:"Suggested tags"`
	}
}

func (s *Server) handleSuggestTags(ctx context.Context, input *SuggestTagsInput) (*SuggestTagsOutput, error) {
	hits, err := s.services.Content.SuggestTags(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}
	out := &SuggestTagsOutput{}
	out.Body.Tags = append([]search.TagHit{}, hits...)
	return out, nil
}

// AnnouncementsOutput lists announcements.
type AnnouncementsOutput struct {
	Body struct {
		Announcements []domain.Announcement `json:"announcements" doc:"Announcements, newest first"`
	}
}

func (s *Server) handleListAnnouncements(ctx context.Context, _ *struct{}) (*AnnouncementsOutput, error) {
	list, err := s.services.Content.Announcements(ctx)
	if err != nil {
		return nil, err
	}
	out := &AnnouncementsOutput{}
	out.Body.Announcements = append([]domain.Announcement{}, list...)
	return out, nil
}
