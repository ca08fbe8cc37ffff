package creators

import "math"

// Feed describes one downloadable catalog feed.
type Feed struct {
	FeedName    string `json:"feedName"`
	Size        int64  `json:"size"`
	LastUpdated string `json:"lastUpdated"`
	MD5         string `json:"md5"`
}

// SizeKB returns the feed size in kilobytes, rounded to the nearest unit.
func (f Feed) SizeKB() int64 {
	return int64(math.Round(float64(f.Size) / 1024))
}

type ListFeedsResponse struct {
	Feeds []Feed `json:"feeds"`
}

type GetFeedRequest struct {
	FeedName string `json:"feedName"`
}

// GetFeedResponse points at the feed content. Fields not modeled here are
// kept in Raw.
type GetFeedResponse struct {
	FeedName    string `json:"feedName"`
	DownloadURL string `json:"downloadUrl"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
	Size        int64  `json:"size,omitempty"`
	MD5         string `json:"md5,omitempty"`

	Raw map[string]interface{} `json:"-"`
}
