package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/RegPulseAI/regpulse/engine/domain"
)

// FederalRegisterURL is the documents endpoint of the Federal Register API.
const FederalRegisterURL = "https://www.federalregister.gov/api/v1/documents.json"

// FederalRegisterAdapter fetches recent documents from the Federal Register
// JSON API.
type FederalRegisterAdapter struct {
	baseURL string
	perPage int
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewFederalRegisterAdapter creates the adapter. An empty baseURL uses the
// public API.
func NewFederalRegisterAdapter(baseURL string) *FederalRegisterAdapter {
	if baseURL == "" {
		baseURL = FederalRegisterURL
	}
	return &FederalRegisterAdapter{
		baseURL: baseURL,
		perPage: 20,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		now:     time.Now,
	}
}

// Name implements SourceAdapter.
func (a *FederalRegisterAdapter) Name() string { return string(domain.SourceFederalRegister) }

type frDocument struct {
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	PublicationDate string `json:"publication_date"`
	HTMLURL         string `json:"html_url"`
	Type            string `json:"type"`
	Agencies        []struct {
		Name string `json:"name"`
	} `json:"agencies"`
}

type frResponse struct {
	Results []frDocument `json:"results"`
}

// Fetch implements SourceAdapter.
func (a *FederalRegisterAdapter) Fetch(ctx context.Context) ([]domain.Update, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?per_page=%d&order=newest", a.baseURL, a.perPage)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, domain.NewSourceError(domain.SourceFederalRegister,
			fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, domain.NewSourceError(domain.SourceFederalRegister,
			fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode))
	}

	var body frResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewSourceError(domain.SourceFederalRegister,
			fmt.Errorf("%w: %v", domain.ErrParse, err))
	}

	fetchedAt := a.now().UTC()
	updates := make([]domain.Update, 0, len(body.Results))
	for _, doc := range body.Results {
		title := stripHTML(doc.Title)
		if title == "" {
			continue
		}
		published, ok := parseDate(doc.PublicationDate)
		if !ok {
			continue
		}

		var agencies []string
		for _, ag := range doc.Agencies {
			if ag.Name != "" {
				agencies = append(agencies, ag.Name)
			}
		}

		u := domain.Update{
			ID:          domain.UpdateID(domain.SourceFederalRegister, title, published),
			Source:      domain.SourceFederalRegister,
			Title:       title,
			BodySummary: summarize(doc.Abstract),
			PublishedAt: published.UTC(),
			FetchedAt:   fetchedAt,
			Category:    doc.Type,
			RawURL:      doc.HTMLURL,
		}
		if len(agencies) > 0 {
			u.Metadata = map[string]string{"agencies": strings.Join(agencies, "; ")}
		}
		updates = append(updates, u)
	}
	return updates, nil
}
