// Package blog holds the publication-side entities a completed
// generation turns into.
package blog

import (
	"strings"
	"time"
	"unicode"

	"newsforge/internal/generation"
)

// Field caps enforced at construction time.
const (
	maxTitleChars   = 200
	maxSlugChars    = 220
	maxExcerptChars = 300
)

// Post is a publishable blog entry.
type Post struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	Excerpt         string     `json:"excerpt,omitempty"`
	Content         string     `json:"content"`
	MetaDescription string     `json:"meta_description,omitempty"`
	MetaKeywords    string     `json:"meta_keywords,omitempty"`
	CategoryID      int64      `json:"category_id,omitempty"`
	Published       bool       `json:"published"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Category groups posts.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

// NewPostFromArticle builds an unpersisted, already-published post from
// a generated article. The store is responsible for slug uniqueness.
func NewPostFromArticle(a *generation.Article, now time.Time) *Post {
	title := clamp(a.Title, maxTitleChars)
	return &Post{
		Title:           title,
		Slug:            clamp(Slugify(title), maxSlugChars),
		Excerpt:         clamp(a.Excerpt, maxExcerptChars),
		Content:         a.Content,
		MetaDescription: a.MetaDescription,
		MetaKeywords:    a.MetaKeywords,
		Published:       true,
		PublishedAt:     &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Slugify lowercases, transliterates common Spanish accents and keeps
// only [a-z0-9-].
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	replacer := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
		"ü", "u", "ñ", "n", "ç", "c",
	)
	s = replacer.Replace(s)

	var b strings.Builder
	prevDash := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)
			prevDash = false
		case !prevDash:
			b.WriteRune('-')
			prevDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func clamp(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
