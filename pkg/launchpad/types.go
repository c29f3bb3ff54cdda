package launchpad

import (
	"path"
	"strings"

	"github.com/tidwall/gjson"
)

// BuildStateFailed is the Launchpad build state of a failed build.
const BuildStateFailed = "Failed to build"

// currentStatuses are the series statuses that the exporter reports on when
// no series are configured.
var currentStatuses = map[string]bool{
	"Active Development": true,
	"Current":            true,
	"Future":             true,
	"Pre-release Freeze": true,
	"Supported":          true,
}

// Series is a distribution series, e.g. "noble".
type Series struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Status   string `json:"status"`
	Active   bool   `json:"active"`
	SelfLink string `json:"self_link"`
}

// IsCurrent reports whether the series is still under development or
// supported.
func (s Series) IsCurrent() bool {
	return currentStatuses[s.Status]
}

func seriesFromJSON(r gjson.Result) Series {
	return Series{
		Name:     r.Get("name").String(),
		Version:  r.Get("version").String(),
		Status:   r.Get("status").String(),
		Active:   r.Get("active").Bool(),
		SelfLink: r.Get("self_link").String(),
	}
}

// Packageset is a named group of source packages in one series.
type Packageset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SeriesName  string `json:"series"`
	SelfLink    string `json:"self_link"`
}

func packagesetFromJSON(r gjson.Result) Packageset {
	return Packageset{
		Name:        r.Get("name").String(),
		Description: r.Get("description").String(),
		SeriesName:  linkBase(r.Get("distroseries_link").String()),
		SelfLink:    r.Get("self_link").String(),
	}
}

// Build is one build record of a source package on an architecture.
type Build struct {
	SourceName    string `json:"source_package_name"`
	SourceVersion string `json:"source_package_version"`
	ArchTag       string `json:"arch_tag"`
	Pocket        Pocket `json:"pocket"`
	State         string `json:"buildstate"`
	SeriesName    string `json:"series"`
	// Current is false once the source the build belongs to is no longer
	// published, e.g. after it was superseded by a newer upload.
	Current bool `json:"current"`
}

func buildFromJSON(r gjson.Result, series string) (Build, error) {
	pocket, err := PocketString(r.Get("pocket").String())
	if err != nil {
		return Build{}, err
	}
	return Build{
		SourceName:    r.Get("source_package_name").String(),
		SourceVersion: r.Get("source_package_version").String(),
		ArchTag:       r.Get("arch_tag").String(),
		Pocket:        pocket,
		State:         r.Get("buildstate").String(),
		SeriesName:    series,
		Current:       r.Get("current_source_publication_link").String() != "",
	}, nil
}

// linkBase returns the last path element of a Launchpad link.
func linkBase(link string) string {
	if link == "" {
		return ""
	}
	return path.Base(strings.TrimSuffix(link, "/"))
}
