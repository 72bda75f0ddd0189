package upload

import "time"

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaOther MediaType = "other"
)

// FileDescriptor describes one uploaded file inside a token directory.
type FileDescriptor struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Type     MediaType `json:"type"`
	Path     string    `json:"path"`
	Modified time.Time `json:"modified"`
}

// Node is one entry of the simulated phone storage tree.
type Node struct {
	Name string `json:"name"`
	Type string `json:"type"` // "file" | "folder"
	Size int64  `json:"size,omitempty"`
	Path string `json:"path"`
}

type Tree struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Contents []Node `json:"contents"`
}

type Stats struct {
	TotalFiles     int     `json:"total_files"`
	TotalSize      int64   `json:"total_size"`
	TotalSizeMB    float64 `json:"total_size_mb"`
	TotalSizeHuman string  `json:"total_size_human"`
}

// MediaCounts is the top-level media breakdown used for paired-device stats.
type MediaCounts struct {
	Photos    int
	Videos    int
	TotalSize int64
}
