package domain

// SiteStats are the site-wide totals shown on the admin profile.
type SiteStats struct {
	TotalPosts    int `json:"totalPosts"`
	TotalComments int `json:"totalComments"`
	TotalUsers    int `json:"totalUsers"`
}

// AdminProfile is the admin's own activity summary.
type AdminProfile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Image    string `json:"image,omitempty"`
	Posts    int    `json:"posts"`
	Comments int    `json:"comments"`
	Users    int    `json:"users"`
}
