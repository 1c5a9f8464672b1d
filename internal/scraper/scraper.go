package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotDetailPage = errors.New("page is not a product detail page")
	ErrNoResults     = errors.New("search results did not load")
	ErrNoNextPage    = errors.New("next page control not available")
	ErrNoLinks       = errors.New("no product links to parse")
)

// Page is the browser tab the pipelines drive.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL() string
	WaitFor(selector string, visible bool, timeout time.Duration) error
	Evaluate(script string) (any, error)
	ClickScript(selector string) error
	Content() (string, error)
}

// Limiter delays the next page visit.
type Limiter interface {
	Wait(ctx context.Context) error
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected numeric value %T", v)
	}
}
