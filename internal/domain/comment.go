package domain

import "time"

// Comment is a reply on a post. Reported only goes back to false when an admin
// approves the comment.
type Comment struct {
	ID          string    `json:"_id,omitempty"`
	PostID      string    `json:"postId"`
	PostTitle   string    `json:"postTitle,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	UserEmail   string    `json:"userEmail"`
	UserName    string    `json:"userName"`
	UserImage   string    `json:"userImage,omitempty"`
	CommentText string    `json:"commentText"`
	Reported    bool      `json:"reported"`
	Feedback    string    `json:"feedback,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ReportReason is one of the fixed feedback options offered when reporting.
type ReportReason string

const (
	ReasonSpam          ReportReason = "Spam"
	ReasonHarassment    ReportReason = "Harassment"
	ReasonOffTopic      ReportReason = "Off-topic"
	ReasonInappropriate ReportReason = "Inappropriate Content"
)

// ReportReasons lists the feedback options in display order.
var ReportReasons = []ReportReason{ReasonSpam, ReasonHarassment, ReasonOffTopic, ReasonInappropriate}

// Valid reports whether r is one of the fixed options.
func (r ReportReason) Valid() bool {
	for _, known := range ReportReasons {
		if r == known {
			return true
		}
	}
	return false
}
