package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"golang.org/x/time/rate"

	"github.com/RegPulseAI/regpulse/engine/domain"
)

// Default feed endpoints for the RSS/Atom-backed sources.
const (
	SECFeedURL  = "https://www.sec.gov/cgi-bin/browse-edgar?action=getcurrent&count=40&output=atom"
	EUOJFeedURL = "https://eur-lex.europa.eu/EN/rss/oj-l-series.rss"
)

// RSSAdapter normalizes an RSS or Atom feed into updates. It covers the SEC
// EDGAR current-filings Atom feed, the EU Official Journal RSS feed, and
// generic agency bulletin feeds.
type RSSAdapter struct {
	source  domain.Source
	url     string
	parser  *gofeed.Parser
	limiter *rate.Limiter
	now     func() time.Time
}

// NewRSSAdapter creates an adapter for the given source and feed URL.
func NewRSSAdapter(source domain.Source, url string) *RSSAdapter {
	parser := gofeed.NewParser()
	parser.AtomTranslator = &atomTermTranslator{inner: &gofeed.DefaultAtomTranslator{}}
	return &RSSAdapter{
		source:  source,
		url:     url,
		parser:  parser,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		now:     time.Now,
	}
}

// atomTermTranslator keeps the term attribute of Atom categories instead of
// the label. The SEC EDGAR feed carries the form code ("8-K") in term and the
// generic text "form type" in label, and the default translation keeps the
// label.
type atomTermTranslator struct {
	inner *gofeed.DefaultAtomTranslator
}

func (t *atomTermTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	f, err := t.inner.Translate(feed)
	if err != nil {
		return nil, err
	}
	raw, ok := feed.(*atom.Feed)
	if !ok {
		return f, nil
	}
	for i, entry := range raw.Entries {
		if i >= len(f.Items) || entry == nil {
			break
		}
		var terms []string
		for _, c := range entry.Categories {
			if c != nil && c.Term != "" {
				terms = append(terms, c.Term)
			}
		}
		if len(terms) > 0 {
			f.Items[i].Categories = terms
		}
	}
	return f, nil
}

// Name implements SourceAdapter.
func (a *RSSAdapter) Name() string { return string(a.source) }

// Fetch implements SourceAdapter.
func (a *RSSAdapter) Fetch(ctx context.Context) ([]domain.Update, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	parsed, err := a.parser.ParseURLWithContext(a.url, ctx)
	if err != nil {
		return nil, domain.NewSourceError(a.source, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err))
	}

	fetchedAt := a.now().UTC()
	updates := make([]domain.Update, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		u, ok := a.normalize(item, fetchedAt)
		if !ok {
			continue // item missing required fields, skip it
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func (a *RSSAdapter) normalize(item *gofeed.Item, fetchedAt time.Time) (domain.Update, bool) {
	title := stripHTML(item.Title)
	if title == "" {
		return domain.Update{}, false
	}

	published, ok := itemDate(item)
	if !ok {
		return domain.Update{}, false
	}

	category := ""
	if len(item.Categories) > 0 {
		category = item.Categories[0]
	}

	body := item.Description
	if body == "" {
		body = item.Content
	}

	return domain.Update{
		ID:          domain.UpdateID(a.source, title, published),
		Source:      a.source,
		Title:       title,
		BodySummary: summarize(body),
		PublishedAt: published.UTC(),
		FetchedAt:   fetchedAt,
		Category:    category,
		Categories:  item.Categories,
		RawURL:      item.Link,
	}, true
}

func itemDate(item *gofeed.Item) (time.Time, bool) {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed, true
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed, true
	}
	if t, ok := parseDate(item.Published); ok {
		return t, true
	}
	return time.Time{}, false
}
