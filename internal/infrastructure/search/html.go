package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CaseCollector/internal/config"
	"CaseCollector/internal/domain"
	"CaseCollector/internal/ports"
	"CaseCollector/internal/scanner"
)

// HTMLSearcher scrapes a search results page using configured CSS selectors.
type HTMLSearcher struct {
	cfg    config.HTMLConfig
	client *http.Client
}

var _ scanner.Provider = (*HTMLSearcher)(nil)

// NewHTMLSearcher wires an HTTP client; a nil client gets one with the configured timeout.
func NewHTMLSearcher(cfg config.HTMLConfig, client *http.Client) *HTMLSearcher {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTMLSearcher{cfg: cfg, client: client}
}

// Name identifies the provider inside the registry.
func (h *HTMLSearcher) Name() string {
	return config.ProviderHTML
}

// Search fetches one results page and extracts up to query.Count items.
func (h *HTMLSearcher) Search(ctx context.Context, query ports.SearchQuery) ([]domain.RawItem, error) {
	if h.cfg.URLTemplate == "" || h.cfg.ItemSelector == "" {
		return nil, fmt.Errorf("html search misconfigured")
	}

	pageURL, err := buildPageURL(h.cfg.URLTemplate, query)
	if err != nil {
		return nil, err
	}

	doc, err := h.fetchDocument(ctx, pageURL.String())
	if err != nil {
		return nil, err
	}

	var items []domain.RawItem
	doc.Find(h.cfg.ItemSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		item, ok := h.parseEntry(sel, pageURL)
		if !ok {
			return true
		}
		item.SourceType = query.SourceType
		item.SearchTerm = query.Term
		items = append(items, item)
		return query.Count <= 0 || len(items) < query.Count
	})

	return items, nil
}

func (h *HTMLSearcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "CaseCollector/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// parseEntry keeps inner markup of title and snippet so the normalizer sees the raw text.
func (h *HTMLSearcher) parseEntry(sel *goquery.Selection, base *url.URL) (domain.RawItem, bool) {
	linkSel := sel
	if h.cfg.LinkSelector != "" {
		linkSel = sel.Find(h.cfg.LinkSelector).First()
	}
	href, ok := linkSel.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return domain.RawItem{}, false
	}
	if ref, err := url.Parse(href); err == nil {
		href = base.ResolveReference(ref).String()
	}

	title := innerHTML(sel, h.cfg.TitleSelector)
	if title == "" {
		title = strings.TrimSpace(linkSel.Text())
	}

	item := domain.RawItem{
		Title:   title,
		Snippet: innerHTML(sel, h.cfg.SnippetSelector),
		Link:    href,
	}

	if h.cfg.DateSelector != "" && h.cfg.DateLayout != "" {
		dateText := strings.TrimSpace(sel.Find(h.cfg.DateSelector).First().Text())
		if parsed, err := time.Parse(h.cfg.DateLayout, dateText); err == nil {
			item.PublishedAt = parsed
		}
	}

	return item, true
}

func innerHTML(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	raw, err := sel.Find(selector).First().Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(raw)
}

func buildPageURL(template string, query ports.SearchQuery) (*url.URL, error) {
	replacer := strings.NewReplacer(
		"{query}", url.QueryEscape(query.Term),
		"{type}", string(query.SourceType),
		"{count}", strconv.Itoa(query.Count),
		"{start}", strconv.Itoa(query.Offset),
		"{sort}", url.QueryEscape(query.Sort),
	)
	parsed, err := url.Parse(replacer.Replace(template))
	if err != nil {
		return nil, fmt.Errorf("invalid results url %s: %w", template, err)
	}
	return parsed, nil
}
