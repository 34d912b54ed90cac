package data

import "time"

// Novel is one folder directly under the library root.
type Novel struct {
	Title     string
	CreatedAt time.Time
	Folder    string // raw folder name, the key back to the filesystem
	CoverPath string // empty when the folder has no cover.jpg
}

// HasCover reports whether the novel ships its own cover image.
func (n *Novel) HasCover() bool {
	return n.CoverPath != ""
}

// TextItem is a convertible text file inside a novel folder.
type TextItem struct {
	FileName string
	Title    string
}

// Conversion is one run of the text-to-ebook workflow as kept in history.
type Conversion struct {
	ID         string
	Novel      string
	Title      string
	SourcePath string
	OutputPath string
	Format     string
	Status     string // "complete", "cached", "failed"
	Error      string
	Emailed    bool
	StartedAt  time.Time
	FinishedAt time.Time
}
