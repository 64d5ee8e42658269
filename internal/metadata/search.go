package metadata

import (
	"strings"

	"golang.org/x/text/cases"
)

// Newest returns up to limit records, most recently uploaded first. A limit
// <= 0 returns every record.
func Newest(files []Artifact, limit int) []Artifact {
	out := make([]Artifact, 0, len(files))
	for i := len(files) - 1; i >= 0; i-- {
		out = append(out, files[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Search returns up to limit records whose display name contains query,
// compared case-insensitively, most recent first.
func (s *Store) Search(query string, limit int) []Artifact {
	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}
	all := s.List()
	matches := make([]Artifact, 0, len(all))
	for _, a := range all {
		if strings.Contains(folder.String(a.FileName), needle) {
			matches = append(matches, a)
		}
	}
	return Newest(matches, limit)
}

// Page is one slice of the collection ordered newest first.
type Page struct {
	Number     int
	TotalPages int
	Total      int
	Items      []Artifact
}

// Paginate returns page number (1-based, clamped to the valid range) of the
// collection, newest first.
func (s *Store) Paginate(number, perPage int) Page {
	if perPage <= 0 {
		perPage = 10
	}
	newest := Newest(s.List(), 0)
	total := len(newest)
	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > pages {
		number = pages
	}
	start := (number - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	if start > total {
		start = total
	}
	return Page{Number: number, TotalPages: pages, Total: total, Items: newest[start:end]}
}
