package elms

import "time"

// ScraperConfig is the `scraper` block of the configuration files, zero
// values fall back to the defaults of Options.
type ScraperConfig struct {
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	ProfileWorkers    int     `json:"profile_workers"`
	RosterPageSize    int     `json:"roster_page_size"`
	CourseLimit       int     `json:"course_limit"`
	LoggedInMarker    string  `json:"logged_in_marker"`
	BypassCloudflare  bool    `json:"bypass_cloudflare"`
}

func (c ScraperConfig) Options(baseUrl string) Options {
	return Options{
		BaseUrl:           baseUrl,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		ProfileWorkers:    c.ProfileWorkers,
		RosterPageSize:    c.RosterPageSize,
		CourseLimit:       c.CourseLimit,
		LoggedInMarker:    c.LoggedInMarker,
		BypassCloudflare:  c.BypassCloudflare,
	}
}
