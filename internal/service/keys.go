package service

import (
	"strconv"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/query"
)

// Query keys. The first element names the query; invalidating it alone drops
// every variant.
var (
	keyPosts            = query.Key{"posts"}
	keyReportedComments = query.Key{"reportedComments"}
	keySearchUsers      = query.Key{"searchUsers"}
	keySiteStats        = query.Key{"siteStats"}
	keyAdminProfile     = query.Key{"adminProfile"}
	keyAnnouncements    = query.Key{"announcements"}
	keyTags             = query.Key{"tags"}
	keySearchPosts      = query.Key{"searchPosts"}
	keyPostsByTag       = query.Key{"postsByTag"}
)

func postsPageKey(sort domain.PostSort, page int) query.Key {
	return query.Key{"posts", string(sort), strconv.Itoa(page)}
}

func postKey(id string) query.Key { return query.Key{"post", id} }
func commentsKey(postID string) query.Key { return query.Key{"comments", postID} }
func userPostsKey(email string) query.Key { return query.Key{"userPosts", email} }
func postCountKey(email string) query.Key { return query.Key{"postCount", email} }
func userKey(email string) query.Key { return query.Key{"user", email} }
func searchUsersKey(q string) query.Key { return query.Key{"searchUsers", q} }
func searchPostsKey(tag string) query.Key { return query.Key{"searchPosts", tag} }
func postsByTagKey(tag string) query.Key { return query.Key{"postsByTag", tag} }
func adminProfileKey(email string) query.Key { return query.Key{"adminProfile", email} }

// InvalidationScope returns who may be holding data under key: the one user
// whose email is part of it, admins, or everyone when both results are empty.
func InvalidationScope(key query.Key) (email string, adminOnly bool) {
	if len(key) == 0 {
		return "", false
	}
	switch key[0] {
	case "userPosts", "postCount", "user", "userRole":
		if len(key) > 1 {
			return key[1], false
		}
	case "reportedComments", "searchUsers", "siteStats", "adminProfile":
		return "", true
	}
	return "", false
}
