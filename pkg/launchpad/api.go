package launchpad

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Series lists every series of a distribution.
func (c *Client) Series(ctx context.Context, distribution string) ([]Series, error) {
	var series []Series
	err := c.EachEntry(ctx, distribution+"/series", nil, func(entry gjson.Result) error {
		series = append(series, seriesFromJSON(entry))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing series of %s", distribution)
	}
	return series, nil
}

// GetSeries resolves a series by name or version number.
func (c *Client) GetSeries(ctx context.Context, distribution, nameOrVersion string) (Series, error) {
	r, err := c.GetJSON(ctx, distribution, url.Values{
		"ws.op":           {"getSeries"},
		"name_or_version": {nameOrVersion},
	})
	if err != nil {
		var apiErr *APIError
		if errors.Is(err, ErrNotFound) || (errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest) {
			return Series{}, errors.Wrapf(ErrUnknownSeries, "%s/%s", distribution, nameOrVersion)
		}
		return Series{}, errors.Wrapf(err, "getting series %s", nameOrVersion)
	}
	s := seriesFromJSON(r)
	if s.Name == "" {
		return Series{}, errors.Wrapf(ErrUnknownSeries, "%s/%s", distribution, nameOrVersion)
	}
	return s, nil
}

// PackagesetsBySeries lists the packagesets defined for a series.
func (c *Client) PackagesetsBySeries(ctx context.Context, series Series) ([]Packageset, error) {
	var sets []Packageset
	err := c.EachEntry(ctx, "package-sets", url.Values{
		"ws.op":        {"getBySeries"},
		"distroseries": {series.SelfLink},
	}, func(entry gjson.Result) error {
		ps := packagesetFromJSON(entry)
		if ps.SeriesName == "" {
			ps.SeriesName = series.Name
		}
		sets = append(sets, ps)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing packagesets of %s", series.Name)
	}
	return sets, nil
}

// PackagesetSources returns the sorted names of the source packages in a
// packageset, including those of nested packagesets.
func (c *Client) PackagesetSources(ctx context.Context, ps Packageset) ([]string, error) {
	r, err := c.GetJSON(ctx, ps.SelfLink, url.Values{
		"ws.op":            {"getSourcesIncluded"},
		"direct_inclusion": {"false"},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing sources of packageset %s/%s", ps.SeriesName, ps.Name)
	}
	if !r.IsArray() {
		return nil, errors.Wrapf(ErrInvalidResponse, "sources of packageset %s/%s", ps.SeriesName, ps.Name)
	}

	entries := r.Array()
	sources := make([]string, 0, len(entries))
	for _, name := range entries {
		sources = append(sources, name.String())
	}
	sort.Strings(sources)
	return sources, nil
}

// PackageUploadCount returns how many uploads of a series are in a pocket's
// queue with the given status.
func (c *Client) PackageUploadCount(ctx context.Context, series Series, status QueueStatus, pocket Pocket) (int, error) {
	n, err := c.CollectionSize(ctx, series.SelfLink, url.Values{
		"ws.op":  {"getPackageUploads"},
		"status": {status.String()},
		"pocket": {pocket.String()},
	})
	if err != nil {
		return 0, errors.Wrapf(err, "counting %s uploads in %s-%s", status, series.Name, pocket)
	}
	return n, nil
}

// FailedBuilds returns the failed builds of a series in a pocket. Launchpad
// lists the newest build first; only that one is kept per source and
// architecture.
func (c *Client) FailedBuilds(ctx context.Context, series Series, pocket Pocket) ([]Build, error) {
	type key struct{ source, arch string }
	seen := map[key]bool{}

	var builds []Build
	err := c.EachEntry(ctx, series.SelfLink, url.Values{
		"ws.op":       {"getBuildRecords"},
		"build_state": {BuildStateFailed},
		"pocket":      {pocket.String()},
	}, func(entry gjson.Result) error {
		b, err := buildFromJSON(entry, series.Name)
		if err != nil {
			return errors.Wrap(err, "decoding build record")
		}
		k := key{b.SourceName, b.ArchTag}
		if seen[k] {
			return nil
		}
		seen[k] = true
		builds = append(builds, b)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing failed builds in %s-%s", series.Name, pocket)
	}
	return builds, nil
}
