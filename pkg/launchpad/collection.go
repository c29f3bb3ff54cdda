package launchpad

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// EachEntry calls fn for every entry of the collection at ref, following
// next_collection_link between pages. A collection longer than the page
// limit fails with ErrTruncated.
func (c *Client) EachEntry(ctx context.Context, ref string, params url.Values, fn func(gjson.Result) error) error {
	next, err := c.resolve(ref, withPageSize(params, pageSize))
	if err != nil {
		return err
	}

	for pages := 0; next != ""; pages++ {
		if c.maxPages > 0 && pages >= c.maxPages {
			return errors.Wrapf(ErrTruncated, "%s after %d pages", ref, pages)
		}

		page, err := c.getJSON(ctx, next)
		if err != nil {
			return err
		}
		for _, entry := range page.Get("entries").Array() {
			if err := fn(entry); err != nil {
				return err
			}
		}
		next = page.Get("next_collection_link").String()
	}
	return nil
}

// CollectionSize returns the number of entries of the collection at ref
// without reading it. Launchpad reports either total_size or, for costly
// queries, a total_size_link to fetch the count from.
func (c *Client) CollectionSize(ctx context.Context, ref string, params url.Values) (int, error) {
	page, err := c.GetJSON(ctx, ref, withPageSize(params, 1))
	if err != nil {
		return 0, err
	}

	if total := page.Get("total_size"); total.Exists() {
		return int(total.Int()), nil
	}

	if link := page.Get("total_size_link").String(); link != "" {
		total, err := c.getJSON(ctx, link)
		if err != nil {
			return 0, err
		}
		if total.Type != gjson.Number {
			return 0, errors.Wrapf(ErrInvalidResponse, "total_size_link %s returned %q", link, total.Raw)
		}
		return int(total.Int()), nil
	}

	if page.Get("next_collection_link").String() != "" {
		return 0, errors.Wrapf(ErrInvalidResponse, "collection %s has no size", ref)
	}
	return len(page.Get("entries").Array()), nil
}

func withPageSize(params url.Values, size int) url.Values {
	out := url.Values{}
	for k, vs := range params {
		out[k] = append([]string(nil), vs...)
	}
	out.Set("ws.size", strconv.Itoa(size))
	return out
}
