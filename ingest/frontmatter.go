package ingest

import (
	"strings"

	"gopkg.in/yaml.v3"
)

type frontMatter struct {
	Title string `yaml:"title"`
}

// stripFrontMatter parses an optional YAML front matter block at the start of
// a markdown note, returning the title (if any) and the remaining body. A
// malformed block is left in place rather than discarded.
func stripFrontMatter(s string) (title, body string) {
	body = s
	if !strings.HasPrefix(s, "---\n") && !strings.HasPrefix(s, "---\r\n") {
		return title, body
	}
	rest := s[strings.Index(s, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return title, body
	}
	block := rest[:end]
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return title, body
	}
	after := rest[end+len("\n---"):]
	if i := strings.Index(after, "\n"); i >= 0 {
		after = after[i+1:]
	} else {
		after = ""
	}
	return fm.Title, strings.TrimLeft(after, "\r\n")
}
