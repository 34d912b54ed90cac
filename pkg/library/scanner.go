// Package library lists novel folders under a library root and the text
// files inside them.
package library

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kerbaras/kindlize/pkg/data"
)

// CoverFile is the per-novel cover image looked up inside each folder.
const CoverFile = "cover.jpg"

// ExcludeList holds entry names hidden from every scan.
var ExcludeList = map[string]struct{}{
	".DS_Store":                   {},
	".mapping":                    {},
	"pushBulletNotifications.xml": {},
	"update.txt":                  {},
	"[三雲岳斗][strike the blood][噬血狂襲]": {},
	"同級生.txt":                     {},
	"@R18":                        {},
	CoverFile:                     {},
}

var ErrNovelNotFound = errors.New("novel folder not found")

// Excluded reports whether name is hidden from scans.
func Excluded(name string) bool {
	_, ok := ExcludeList[name]
	return ok
}

type Scanner struct {
	// LooseMatch accepts any file whose name contains ".txt" past the
	// first character, e.g. "note.txt.bak". Off by default.
	LooseMatch bool
}

func NewScanner() *Scanner {
	return &Scanner{}
}

// Novels lists the immediate subdirectories of root as novels. An unset or
// unreadable root yields an empty list.
func (s *Scanner) Novels(root string) []data.Novel {
	if root == "" {
		return []data.Novel{}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return []data.Novel{}
	}

	novels := make([]data.Novel, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if Excluded(name) {
			continue
		}

		dir := filepath.Join(root, name)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}

		novel := data.Novel{
			Title:     NormalizeTitle(name),
			CreatedAt: createdAt(info),
			Folder:    name,
		}

		cover := filepath.Join(dir, CoverFile)
		if st, err := os.Stat(cover); err == nil && !st.IsDir() {
			novel.CoverPath = cover
		}

		novels = append(novels, novel)
	}

	return novels
}

// Items lists the text files of novel. When the folder has vanished the
// result is empty and the error is ErrNovelNotFound.
func (s *Scanner) Items(root string, novel data.Novel) ([]data.TextItem, error) {
	dir := filepath.Join(root, novel.Folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []data.TextItem{}, ErrNovelNotFound
		}
		return []data.TextItem{}, err
	}

	items := []data.TextItem{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || Excluded(name) || !s.isText(name) {
			continue
		}
		items = append(items, data.TextItem{
			FileName: name,
			Title:    strings.TrimSuffix(name, filepath.Ext(name)),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].FileName < items[j].FileName
	})

	return items, nil
}

func (s *Scanner) isText(name string) bool {
	if s.LooseMatch {
		return strings.Index(name, ".txt") > 0
	}
	return strings.EqualFold(filepath.Ext(name), ".txt") && len(name) > len(".txt")
}

// NormalizeTitle derives a display title from a folder name. Names with a
// leading underscore carry a tag before the first hyphen, which is dropped.
func NormalizeTitle(folder string) string {
	if strings.HasPrefix(folder, "_") {
		if _, title, ok := strings.Cut(folder, "-"); ok {
			return title
		}
	}
	return strings.TrimSpace(folder)
}

// SortNewestFirst orders novels by creation time, newest first, keeping
// the scan order for ties.
func SortNewestFirst(novels []data.Novel) {
	sort.SliceStable(novels, func(i, j int) bool {
		return novels[i].CreatedAt.After(novels[j].CreatedAt)
	})
}

// Filter keeps the novels whose title contains keyword.
func Filter(novels []data.Novel, keyword string) []data.Novel {
	if keyword == "" {
		return novels
	}
	out := make([]data.Novel, 0, len(novels))
	for _, n := range novels {
		if strings.Contains(n.Title, keyword) {
			out = append(out, n)
		}
	}
	return out
}

// Find returns the novel whose folder or title equals name.
func Find(novels []data.Novel, name string) (data.Novel, bool) {
	for _, n := range novels {
		if n.Folder == name {
			return n, true
		}
	}
	for _, n := range novels {
		if n.Title == name {
			return n, true
		}
	}
	return data.Novel{}, false
}
