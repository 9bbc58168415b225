package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CaseCollector/internal/config"
	"CaseCollector/internal/domain"
	"CaseCollector/internal/ports"
	"CaseCollector/internal/scanner"
)

const (
	naverMaxDisplay = 100
	naverMaxStart   = 1000
	blogDateLayout  = "20060102"
)

// NaverSearcher queries the Naver open search API for blog and news items.
type NaverSearcher struct {
	endpoint     string
	clientID     string
	clientSecret string
	client       *http.Client
}

var _ scanner.Provider = (*NaverSearcher)(nil)

// NewNaverSearcher wires an HTTP client; a nil client gets one with the configured timeout.
func NewNaverSearcher(cfg config.NaverConfig, client *http.Client) *NaverSearcher {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &NaverSearcher{
		endpoint:     strings.TrimSuffix(cfg.Endpoint, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		client:       client,
	}
}

// Name identifies the provider inside the registry.
func (n *NaverSearcher) Name() string {
	return config.ProviderNaver
}

type naverResponse struct {
	Items []naverItem `json:"items"`
}

type naverItem struct {
	Title        string `json:"title"`
	Link         string `json:"link"`
	OriginalLink string `json:"originallink"`
	Description  string `json:"description"`
	PostDate     string `json:"postdate"`
	PubDate      string `json:"pubDate"`
}

// Search runs one API call. Titles and descriptions come back with markup; normalization happens downstream.
func (n *NaverSearcher) Search(ctx context.Context, query ports.SearchQuery) ([]domain.RawItem, error) {
	if !query.SourceType.Valid() {
		return nil, fmt.Errorf("naver: unsupported source type %q", query.SourceType)
	}

	reqURL, err := n.buildURL(query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", n.clientID)
	req.Header.Set("X-Naver-Client-Secret", n.clientSecret)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("naver request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("naver returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var body naverResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode naver response: %w", err)
	}

	items := make([]domain.RawItem, 0, len(body.Items))
	for _, it := range body.Items {
		link := it.Link
		if link == "" {
			link = it.OriginalLink
		}
		items = append(items, domain.RawItem{
			Title:       it.Title,
			Snippet:     it.Description,
			Link:        link,
			SourceType:  query.SourceType,
			PublishedAt: parseNaverDate(query.SourceType, it),
			SearchTerm:  query.Term,
		})
	}
	return items, nil
}

func (n *NaverSearcher) buildURL(query ports.SearchQuery) (string, error) {
	parsed, err := url.Parse(fmt.Sprintf("%s/%s.json", n.endpoint, query.SourceType))
	if err != nil {
		return "", fmt.Errorf("invalid naver endpoint %s: %w", n.endpoint, err)
	}

	params := parsed.Query()
	params.Set("query", query.Term)
	params.Set("display", strconv.Itoa(clamp(query.Count, 1, naverMaxDisplay)))
	params.Set("start", strconv.Itoa(clamp(query.Offset, 1, naverMaxStart)))
	if query.Sort != "" {
		params.Set("sort", query.Sort)
	}
	parsed.RawQuery = params.Encode()
	return parsed.String(), nil
}

func parseNaverDate(source domain.SourceType, it naverItem) time.Time {
	var (
		parsed time.Time
		err    error
	)
	switch source {
	case domain.SourceBlog:
		parsed, err = time.Parse(blogDateLayout, strings.TrimSpace(it.PostDate))
	case domain.SourceNews:
		parsed, err = time.Parse(time.RFC1123Z, strings.TrimSpace(it.PubDate))
	}
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
