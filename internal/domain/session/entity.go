package session

import "time"

// Session is the in-memory record for one upload token. Sessions live for
// the lifetime of the process and are never written to disk.
type Session struct {
	Token     string       `json:"token"`
	Granted   bool         `json:"granted"`
	CreatedAt time.Time    `json:"created_at"`
	Files     []FileRecord `json:"files"`
}

type FileRecord struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// View is a session as shown on the admin page, with files read from disk.
type View struct {
	Token     string       `json:"token"`
	Granted   bool         `json:"granted"`
	CreatedAt time.Time    `json:"created_at"`
	Files     []FileRecord `json:"files"`
	FileCount int          `json:"file_count"`
}

type PollFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
