package models

import "time"

type Link struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ShortCode string    `db:"short_code" json:"short_code"`
	TargetURL string    `db:"target_url" json:"target_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	StatsID   int64     `db:"stats_id" json:"stats_id,omitempty"`
}

type LinkStats struct {
	ID             int64 `db:"id" json:"id"`
	LinkID         int64 `db:"link_id" json:"link_id"`
	RedirectsCount int64 `db:"redirects_count" json:"redirects_count"`
}

// LinkRedirect is an append-only record of a single visit. Rows are never
// updated after insertion; listing order is clicked_at descending.
type LinkRedirect struct {
	ID          int64     `db:"id" json:"id"`
	LinkStatsID int64     `db:"link_stats_id" json:"link_stats_id"`
	IP          string    `db:"ip" json:"ip,omitempty"`
	Country     string    `db:"country" json:"country,omitempty"`
	Browser     string    `db:"browser" json:"browser,omitempty"`
	OS          string    `db:"os" json:"os,omitempty"`
	Device      string    `db:"device" json:"device,omitempty"`
	IsMobile    bool      `db:"is_mobile" json:"is_mobile"`
	IsTablet    bool      `db:"is_tablet" json:"is_tablet"`
	ClickedAt   time.Time `db:"clicked_at" json:"clicked_at"`
}

type CreateLinkRequest struct {
	TargetURL       string `json:"target_url"`
	CustomShortCode string `json:"custom_short_code,omitempty"`
}

type LinkStatsResponse struct {
	RedirectsCount int64          `json:"redirects_count"`
	Redirects      []LinkRedirect `json:"redirects"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type UserLinksResponse struct {
	Links      []Link     `json:"links"`
	Pagination Pagination `json:"pagination"`
}
