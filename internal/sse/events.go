// Package sse streams live updates to signed-in browsers with Server-Sent Events.
//
// The main payload is cache invalidation: when a mutation on the gateway drops
// query keys, every browser that may be showing data under those keys is told to
// refetch. Events can be scoped to one email or to admins.
package sse

import (
	"time"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventConnected is the first event on every stream.
	EventConnected EventType = "connected"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"

	// EventQueryInvalidated tells the browser to refetch data under a query key prefix.
	EventQueryInvalidated EventType = "query.invalidated"

	// EventAnnouncementCreated is broadcast when an admin publishes an announcement.
	EventAnnouncementCreated EventType = "announcement.created"

	// EventCommentReported represents a newly reported comment.
	// Only sent to admin users.
	EventCommentReported EventType = "comment.reported"

	// EventRoleChanged is sent to a user whose role an admin changed.
	EventRoleChanged EventType = "user.role_changed"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	// Email restricts delivery to one user. Empty means everyone the type allows.
	Email string `json:"-"`
	// AdminOnly restricts delivery to admins.
	AdminOnly bool `json:"-"`
}

// InvalidatedEventData is the payload of a query invalidation.
type InvalidatedEventData struct {
	Key []string `json:"key"`
}

// HeartbeatEventData is the payload of a heartbeat.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// AnnouncementEventData is the payload of announcement.created.
type AnnouncementEventData struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// CommentReportedEventData is the payload of comment.reported.
type CommentReportedEventData struct {
	CommentID string `json:"comment_id"`
	PostID    string `json:"post_id"`
	Feedback  string `json:"feedback"`
}

// RoleChangedEventData is the payload of user.role_changed.
type RoleChangedEventData struct {
	Role string `json:"role"`
}

// NewInvalidatedEvent creates a query invalidation event for key, scoped to
// email or to admins when either is set.
func NewInvalidatedEvent(key []string, email string, adminOnly bool) Event {
	return Event{
		Type:      EventQueryInvalidated,
		Data:      InvalidatedEventData{Key: key},
		Timestamp: time.Now(),
		Email:     email,
		AdminOnly: adminOnly,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}

// NewAnnouncementCreatedEvent creates an announcement.created event.
func NewAnnouncementCreatedEvent(id, title, authorName string) Event {
	return Event{
		Type:      EventAnnouncementCreated,
		Data:      AnnouncementEventData{ID: id, Title: title, AuthorName: authorName},
		Timestamp: time.Now(),
	}
}

// NewCommentReportedEvent creates a comment.reported event for admins.
func NewCommentReportedEvent(commentID, postID, feedback string) Event {
	return Event{
		Type:      EventCommentReported,
		Data:      CommentReportedEventData{CommentID: commentID, PostID: postID, Feedback: feedback},
		Timestamp: time.Now(),
		AdminOnly: true,
	}
}

// NewRoleChangedEvent creates a user.role_changed event for email.
func NewRoleChangedEvent(email, role string) Event {
	return Event{
		Type:      EventRoleChanged,
		Data:      RoleChangedEventData{Role: role},
		Timestamp: time.Now(),
		Email:     email,
	}
}
