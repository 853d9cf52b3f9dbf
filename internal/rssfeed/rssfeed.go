// Package rssfeed pulls candidate articles from a curated list of RSS
// feeds. Used to enrich the search strategy when the news endpoint
// returns nothing for a tag set.
package rssfeed

import (
	"log"
	"os"
	"strings"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

// FeedsConfig is YAML config structure
// feeds:
//   - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// Candidate is one feed item worth extracting.
type Candidate struct {
	Title       string
	Description string
	URL         string
	SourceName  string
	PublishedAt string
}

// LoadFeeds reads the RSS feeds list from a YAML file.
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg.Feeds, nil
}

// FetchMatching downloads all feeds and keeps items whose title or
// description mentions one of the tags. Feed errors are logged, not
// fatal; a broken feed never blocks the others.
func FetchMatching(urls []string, tags []string, limit int) []Candidate {
	parser := gofeed.NewParser()
	var matched []Candidate

	lowered := make([]string, 0, len(tags))
	for _, t := range tags {
		lowered = append(lowered, strings.ToLower(t))
	}

	for _, u := range urls {
		feed, err := parser.ParseURL(u)
		if err != nil {
			log.Printf("Error parsing RSS %s: %v", u, err)
			continue
		}

		sourceName := feed.Title
		for _, item := range feed.Items {
			if limit > 0 && len(matched) >= limit {
				return matched
			}
			if item.Link == "" || !matchesAny(item, lowered) {
				continue
			}

			published := ""
			if item.PublishedParsed != nil {
				published = item.PublishedParsed.Format("2006-01-02T15:04:05Z07:00")
			}
			matched = append(matched, Candidate{
				Title:       item.Title,
				Description: item.Description,
				URL:         item.Link,
				SourceName:  sourceName,
				PublishedAt: published,
			})
		}
	}

	return matched
}

func matchesAny(item *gofeed.Item, loweredTags []string) bool {
	haystack := strings.ToLower(item.Title + " " + item.Description)
	for _, tag := range loweredTags {
		if tag != "" && strings.Contains(haystack, tag) {
			return true
		}
	}
	return false
}
