// Package scrapertest provides an in-memory browser driver for exercising
// scrape cycles without launching a browser.
package scrapertest

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"sync"
	"time"

	"instagram-comment-scraper/internal/scraper"
	"instagram-comment-scraper/pkg/types"
)

// Driver implements scraper.Driver. Pages maps a navigated URL to the page
// source served for it; any other URL serves DefaultPage.
type Driver struct {
	mu sync.Mutex

	Pages       map[string]string
	DefaultPage string
	// Missing selectors never appear, so waiting on them times out.
	Missing     map[string]bool
	Jar         []scraper.Cookie
	NavigateErr error

	Visited   []string
	Typed     map[string]string
	Submitted bool
	Reloads   int
	Closes    int

	current string
}

func NewDriver() *Driver {
	return &Driver{
		Pages:   make(map[string]string),
		Missing: make(map[string]bool),
		Typed:   make(map[string]string),
	}
}

// Factory returns a DriverFactory that always hands out d.
func (d *Driver) Factory() scraper.DriverFactory {
	return func(ctx context.Context) (scraper.Driver, error) {
		return d, nil
	}
}

// FailingFactory returns a DriverFactory whose launch always fails with err.
func FailingFactory(err error) scraper.DriverFactory {
	return func(ctx context.Context) (scraper.Driver, error) {
		return nil, err
	}
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.NavigateErr != nil {
		return d.NavigateErr
	}
	d.current = url
	d.Visited = append(d.Visited, url)
	return nil
}

func (d *Driver) Reload(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Reloads++
	return nil
}

func (d *Driver) SetCookies(ctx context.Context, cookies []scraper.Cookie) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Jar = append([]scraper.Cookie(nil), cookies...)
	return nil
}

func (d *Driver) Cookies(ctx context.Context) ([]scraper.Cookie, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]scraper.Cookie(nil), d.Jar...), nil
}

func (d *Driver) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Missing[selector] {
		return fmt.Errorf("%w: %s after %v", scraper.ErrElementNotFound, selector, timeout)
	}
	return nil
}

func (d *Driver) SendKeys(ctx context.Context, selector, text string, submit bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Typed[selector] = text
	if submit {
		d.Submitted = true
	}
	return nil
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if page, ok := d.Pages[d.current]; ok {
		return page, nil
	}
	return d.DefaultPage, nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closes++
	return nil
}

// ViewSourcePage renders body the way a browser's page-source view does:
// one escaped line inside a td.line-content cell.
func ViewSourcePage(body string) string {
	return `<html><body><table><tbody><tr><td class="line-number"></td><td class="line-content">` +
		html.EscapeString(body) +
		`</td></tr></tbody></table></body></html>`
}

// CommentsPage is ViewSourcePage over the JSON encoding of doc.
func CommentsPage(doc *types.CommentDocument) string {
	body, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return ViewSourcePage(string(body))
}
