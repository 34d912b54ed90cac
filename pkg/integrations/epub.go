package integrations

import (
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/go-shiori/go-epub"
)

// chapterHeading matches the usual web-novel chapter lines such as
// "第十二章 歸來" or "Chapter 3".
var chapterHeading = regexp.MustCompile(`^(第[0-9０-９一二三四五六七八九十百千零〇兩]+[章回節卷話]|(?i:chapter)\s+\d+)`)

// TextEPUB builds an EPUB locally from a plain-text novel. It is the
// offline alternative to the remote MOBI conversion.
type TextEPUB struct {
	Author string
	Lang   string
}

func NewTextEPUB() *TextEPUB {
	return &TextEPUB{Author: "Kindlize", Lang: "zh-Hant"}
}

// Section is one chapter of the book.
type Section struct {
	Title      string
	Paragraphs []string
}

// SplitSections breaks text into chapters at heading lines. Text before the
// first heading becomes a section named after the book.
func SplitSections(title, text string) []Section {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var sections []Section
	current := Section{Title: title}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if chapterHeading.MatchString(line) {
			if len(current.Paragraphs) > 0 || current.Title != title {
				sections = append(sections, current)
			}
			current = Section{Title: line}
			continue
		}
		current.Paragraphs = append(current.Paragraphs, line)
	}
	if len(current.Paragraphs) > 0 || current.Title != title || len(sections) == 0 {
		sections = append(sections, current)
	}
	return sections
}

// Write renders the book into w. cover may be nil.
func (b *TextEPUB) Write(w io.Writer, title, text string, cover []byte) error {
	e, err := epub.NewEpub(title)
	if err != nil {
		return fmt.Errorf("failed to create EPub: %w", err)
	}
	e.SetAuthor(b.Author)
	e.SetLang(b.Lang)

	if len(cover) > 0 {
		src := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(cover)
		img, err := e.AddImage(src, "cover.jpg")
		if err != nil {
			return fmt.Errorf("failed to add cover: %w", err)
		}
		if err := e.SetCover(img, ""); err != nil {
			return fmt.Errorf("failed to set cover: %w", err)
		}
	}

	for i, s := range SplitSections(title, text) {
		var body strings.Builder
		body.WriteString("<h1>" + html.EscapeString(s.Title) + "</h1>\n")
		for _, p := range s.Paragraphs {
			body.WriteString("<p>" + html.EscapeString(p) + "</p>\n")
		}
		name := fmt.Sprintf("section%04d.xhtml", i+1)
		if _, err := e.AddSection(body.String(), s.Title, name, ""); err != nil {
			return fmt.Errorf("failed to add section %q: %w", s.Title, err)
		}
	}

	if _, err := e.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write EPub: %w", err)
	}
	return nil
}

// SanitizeFilename replaces characters that are invalid in file names.
func SanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	return result
}
