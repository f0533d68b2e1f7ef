package entity

// RawPost is the first post of a thread as read from the forum.
type RawPost struct {
	Title    string
	URL      string
	Author   string
	ImageURL string
	Anchors  []Anchor
}

type SteamInfo struct {
	Title      string `json:"title"`
	LastUpdate int64  `json:"last_update,string"` // epoch seconds, 0 when unknown
	URL        string `json:"url"`
}

// SearchResult is an aggregate of one post's extracted data.
type SearchResult struct {
	ThreadInfo LinkText
	Author     string
	ImageURL   string
	SteamLinks []SteamInfo
	DLLinks    []LinkText
}
