package integration

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/tidwall/gjson"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad/launchpadtest"
)

const refreshTimeout = 15 * time.Second

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	launchpad    *launchpadtest.Server
	exporter     *ExporterInstance
	builds       map[string][]launchpadtest.Build
	response     *http.Response
	responseBody []byte
}

// NewStepsContext creates a new steps context with an empty Launchpad
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:        tc,
		launchpad: launchpadtest.NewServer("ubuntu"),
	}
}

// Close stops the exporter and the fake Launchpad
func (s *StepsContext) Close() {
	if s.exporter != nil {
		s.exporter.Stop()
	}
	s.launchpad.Close()
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	// Launchpad steps
	sc.Step(`^Launchpad has series "([^"]*)" version "([^"]*)" with status "([^"]*)"$`, s.launchpadHasSeries)
	sc.Step(`^packageset "([^"]*)" of "([^"]*)" contains "([^"]*)"$`, s.packagesetContains)
	sc.Step(`^(\d+) uploads? (?:are|is) "([^"]*)" in "([^"]*)" of "([^"]*)"$`, s.uploadsAre)
	sc.Step(`^"([^"]*)" failed to build on "([^"]*)" in "([^"]*)" of "([^"]*)"$`, s.failedToBuild)
	sc.Step(`^a superseded build of "([^"]*)" failed on "([^"]*)" in "([^"]*)" of "([^"]*)"$`, s.supersededBuildFailed)
	sc.Step(`^Launchpad becomes unavailable$`, s.launchpadBecomesUnavailable)

	// Exporter steps
	sc.Step(`^the exporter is running$`, s.theExporterIsRunning)
	sc.Step(`^the exporter is running for series "([^"]*)"$`, s.theExporterIsRunningForSeries)
	sc.Step(`^the exporter is running for packagesets "([^"]*)"$`, s.theExporterIsRunningForPackagesets)
	sc.Step(`^the exporter is ready$`, s.theExporterIsReady)

	// Request steps
	sc.Step(`^I request "([^"]*)"$`, s.iRequest)
	sc.Step(`^I request "([^"]*)" accepting "([^"]*)"$`, s.iRequestAccepting)
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, s.theResponseShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, s.theJSONFieldShouldBe)

	// Metric steps
	sc.Step(`^the metric (\S+) should be (\d+)$`, s.theMetricShouldBe)
	sc.Step(`^the metric (\S+) should not be present$`, s.theMetricShouldNotBePresent)
	sc.Step(`^eventually the metric (\S+) should be (\d+)$`, s.eventuallyTheMetricShouldBe)
}

// Launchpad steps

func (s *StepsContext) launchpadHasSeries(name, version, status string) error {
	s.launchpad.AddSeries(name, version, status)
	return nil
}

func (s *StepsContext) packagesetContains(name, series, sources string) error {
	s.launchpad.SetPackageset(series, name, splitList(sources)...)
	return nil
}

func (s *StepsContext) uploadsAre(n int, status, pocket, series string) error {
	p, err := launchpad.PocketString(pocket)
	if err != nil {
		return err
	}
	st, err := launchpad.QueueStatusString(status)
	if err != nil {
		return err
	}
	s.launchpad.SetUploads(series, p, st, n)
	return nil
}

func (s *StepsContext) failedToBuild(source, arch, pocket, series string) error {
	return s.addFailedBuild(series, pocket, launchpadtest.Build{Source: source, Version: "1.0-1", Arch: arch, Current: true})
}

func (s *StepsContext) supersededBuildFailed(source, arch, pocket, series string) error {
	return s.addFailedBuild(series, pocket, launchpadtest.Build{Source: source, Version: "0.9-1", Arch: arch})
}

func (s *StepsContext) addFailedBuild(series, pocket string, b launchpadtest.Build) error {
	p, err := launchpad.PocketString(pocket)
	if err != nil {
		return err
	}
	key := series + "/" + p.String()
	if s.builds == nil {
		s.builds = map[string][]launchpadtest.Build{}
	}
	s.builds[key] = append(s.builds[key], b)
	s.launchpad.SetFailedBuilds(series, p, s.builds[key]...)
	return nil
}

func (s *StepsContext) launchpadBecomesUnavailable() error {
	s.launchpad.SetFailing(true)
	return nil
}

// Exporter steps

func (s *StepsContext) theExporterIsRunning() error {
	return s.startExporter(ExporterConfig{})
}

func (s *StepsContext) theExporterIsRunningForSeries(series string) error {
	return s.startExporter(ExporterConfig{Series: splitList(series)})
}

func (s *StepsContext) theExporterIsRunningForPackagesets(packagesets string) error {
	return s.startExporter(ExporterConfig{Packagesets: splitList(packagesets)})
}

func (s *StepsContext) startExporter(cfg ExporterConfig) error {
	instance, err := StartExporter(s.tc, s.launchpad.URL, cfg)
	if err != nil {
		return err
	}
	s.exporter = instance
	return nil
}

func (s *StepsContext) theExporterIsReady() error {
	return waitForURL(s.exporter.URL+"/-/ready", refreshTimeout)
}

// Request steps

func (s *StepsContext) iRequest(path string) error {
	return s.iRequestAccepting(path, "")
}

func (s *StepsContext) iRequestAccepting(path, accept string) error {
	req, err := http.NewRequest(http.MethodGet, s.exporter.URL+path, nil)
	if err != nil {
		return err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}

	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

func (s *StepsContext) theResponseStatusShouldBe(expected int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseShouldContain(text string) error {
	if !bytes.Contains(s.responseBody, []byte(text)) {
		return fmt.Errorf("expected response to contain %q, got: %s", text, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theJSONFieldShouldBe(path, expected string) error {
	field := gjson.GetBytes(s.responseBody, path)
	if !field.Exists() {
		return fmt.Errorf("field %q not found in %s", path, string(s.responseBody))
	}
	if field.String() != expected {
		return fmt.Errorf("expected %s to be %q, got %q", path, expected, field.String())
	}
	return nil
}

// Metric steps

func (s *StepsContext) theMetricShouldBe(series string, expected int) error {
	value, ok, err := s.scrape(series)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("metric %s not found", series)
	}
	if value != float64(expected) {
		return fmt.Errorf("expected %s to be %d, got %v", series, expected, value)
	}
	return nil
}

func (s *StepsContext) theMetricShouldNotBePresent(series string) error {
	value, ok, err := s.scrape(series)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("expected %s to be absent, got %v", series, value)
	}
	return nil
}

func (s *StepsContext) eventuallyTheMetricShouldBe(series string, expected int) error {
	deadline := time.Now().Add(refreshTimeout)
	var err error
	for time.Now().Before(deadline) {
		if err = s.theMetricShouldBe(series, expected); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return err
}

// scrape fetches /metrics and returns the value of one series, written as
// in the exposition format, e.g. queue_number_packages{pocket="Proposed",...}.
func (s *StepsContext) scrape(series string) (float64, bool, error) {
	if err := s.iRequest("/metrics"); err != nil {
		return 0, false, err
	}
	if err := s.theResponseStatusShouldBe(http.StatusOK); err != nil {
		return 0, false, err
	}

	scanner := bufio.NewScanner(bytes.NewReader(s.responseBody))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, series+" ") {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, series)), 64)
		if err != nil {
			return 0, false, fmt.Errorf("bad sample %q: %w", line, err)
		}
		return value, true, nil
	}
	return 0, false, scanner.Err()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
