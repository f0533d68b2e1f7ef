package entity

type Version struct {
	Title      string
	LastUpdate int64
}

// Update is produced only when From.Title == To.Title and the instants differ.
// Link is the download candidate To was parsed from.
type Update struct {
	From Version
	To   Version
	Link LinkText
}

// AppConfig is the persisted record of the installed version.
type AppConfig struct {
	AppID           string `json:"app_id"`
	Path            string `json:"path"`
	LastUpdate      int64  `json:"last_update,string"`
	LastUpdateTitle string `json:"last_update_title"`
	LastUpdateStr   string `json:"last_update_str"` // dd.mm.yyyy
}
