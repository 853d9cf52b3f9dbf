package generation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTagsListSplitsAndTrims(t *testing.T) {
	req := &GenerationRequest{Tags: " golang ,, concurrencia,  "}
	assert.Equal(t, []string{"golang", "concurrencia"}, req.TagsList())

	assert.Nil(t, (&GenerationRequest{Tags: "  "}).TagsList())
}

func TestURLListSplitsLines(t *testing.T) {
	req := &GenerationRequest{ManualURLs: "https://a.example\n\n  https://b.example  \n"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, req.URLList())
}

func TestCloneIsDeep(t *testing.T) {
	done := time.Now()
	orig := &GenerationRequest{
		ID:            7,
		SourceRecords: []SourceRecord{{Type: SourceSearched, Title: "a"}},
		Article:       &Article{Title: "t"},
		CompletedAt:   &done,
	}

	cp := orig.Clone()
	cp.SourceRecords[0].Title = "changed"
	cp.Article.Title = "changed"
	*cp.CompletedAt = done.Add(time.Hour)

	assert.Equal(t, "a", orig.SourceRecords[0].Title)
	assert.Equal(t, "t", orig.Article.Title)
	assert.Equal(t, done, *orig.CompletedAt)
}

func TestArticleComplete(t *testing.T) {
	full := &Article{
		Title: "t", Excerpt: "e", Content: "c",
		MetaDescription: "d", MetaKeywords: "k",
	}
	assert.True(t, full.Complete())

	partial := *full
	partial.MetaKeywords = ""
	assert.False(t, partial.Complete())

	var nilArticle *Article
	assert.False(t, nilArticle.Complete())
}

func TestDisplayLabel(t *testing.T) {
	assert.Equal(t, "Búsqueda web", SourceRecord{Type: SourceSearched}.DisplayLabel())
	assert.Equal(t, "Fuente IA: expertos", SourceRecord{Type: SourceAIExpert}.DisplayLabel())
	assert.Equal(t, "Fuente", SourceRecord{Type: "unknown"}.DisplayLabel())
}
