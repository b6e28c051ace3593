package spotify

import (
	"context"
	"net/url"
	"strings"

	"github.com/desertthunder/wamp/internal/transport"
)

// pageFunc decodes one page and returns its items, the raw item count before filtering, and the next cursor.
type pageFunc[R, T any] func(resp *R) (items []T, raw int, next string)

// collect follows "next" links starting at first and concatenates every page's items in order.
//
// The loop ends on an absent cursor or an empty page. It also ends, with a warning, when the cursor
// repeats a page already fetched, points away from the API host, or the page cap is reached.
func collect[R, T any](ctx context.Context, c *Client, first *transport.Request, page pageFunc[R, T]) ([]T, error) {
	var all []T
	seen := map[string]bool{pageKey(first.Path, first.Query): true}
	req := first

	for n := 0; ; n++ {
		if n >= c.maxPages {
			c.logger.Warn("pagination stopped at page cap", "path", first.Path, "pages", n)
			return all, nil
		}

		var resp R
		if err := c.do(ctx, req, &resp); err != nil {
			return nil, err
		}

		items, raw, next := page(&resp)
		all = append(all, items...)
		if next == "" || raw == 0 {
			return all, nil
		}

		path, ok := c.relativePath(next)
		if !ok {
			c.logger.Warn("pagination stopped at foreign cursor", "path", first.Path, "next", next)
			return all, nil
		}
		key := pageKey(path, nil)
		if seen[key] {
			c.logger.Warn("pagination stopped at repeated cursor", "path", first.Path, "next", next)
			return all, nil
		}
		seen[key] = true
		req = &transport.Request{Path: path}
	}
}

// relativePath turns an absolute "next" URL from the API into a path relative to the base URL.
// Cursors that are already relative pass through. ok is false for other hosts.
func (c *Client) relativePath(next string) (string, bool) {
	u, err := url.Parse(next)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		if !strings.HasPrefix(u.Path, "/") {
			return "", false
		}
		return u.RequestURI(), true
	}
	if !strings.EqualFold(u.Host, c.base.Host) || u.Scheme != c.base.Scheme {
		return "", false
	}

	p := u.Path
	if prefix := c.base.Path; prefix != "" {
		if !strings.HasPrefix(p, prefix+"/") {
			return "", false
		}
		p = strings.TrimPrefix(p, prefix)
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p, true
}

// pageKey normalizes path and query so equal cursors compare equal regardless of parameter order.
func pageKey(path string, query url.Values) string {
	p, raw, _ := strings.Cut(path, "?")
	q, err := url.ParseQuery(raw)
	if err != nil {
		q = url.Values{}
	}
	for k, vs := range query {
		q[k] = append(q[k], vs...)
	}
	return p + "?" + q.Encode()
}
