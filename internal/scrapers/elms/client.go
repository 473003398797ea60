// client.go sets up the http transport every portal session uses.

package elms

import (
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"sync/atomic"
	"time"

	"elms-extractor/internal/components/assert"
	"elms-extractor/internal/components/telemetry"
	"elms-extractor/pkg/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	report_client_login         = "client.login"
	report_session_courses      = "session.courses"
	report_session_extract      = "session.extract-course"
	report_session_profile      = "session.extract-course.profile"
	report_session_roster_users = "session.extract-course.users"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	BaseUrl string
	// Timeout bounds every single request, not whole operations.
	Timeout time.Duration
	// RequestsPerSecond limits outbound requests per session, <= 0 disables the limit.
	RequestsPerSecond float64
	// ProfileWorkers is how many profile pages are fetched at once.
	ProfileWorkers int
	// RosterPageSize is requested as `perpage`, it must cover a whole roster
	// since only the first page is read.
	RosterPageSize int
	// CourseLimit is the `limit` of the enrolled courses query, enrollments
	// beyond it are not listed.
	CourseLimit int
	// LoggedInMarker is a string only present on pages shown to a logged-in user.
	LoggedInMarker   string
	BypassCloudflare bool
	// Dump receives every http message of every session when set.
	Dump restyutil.InstrumentOutput
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = time.Second * 30
	}
	if o.ProfileWorkers <= 0 {
		o.ProfileWorkers = 8
	}
	if o.RosterPageSize <= 0 {
		o.RosterPageSize = 5000
	}
	if o.CourseLimit <= 0 {
		o.CourseLimit = 1000
	}
	if o.LoggedInMarker == "" {
		o.LoggedInMarker = "Dashboard"
	}
	return o
}

// Client logs into the portal, it holds no per-user state.
type Client struct {
	opts     Options
	baseUrl  *url.URL
	tel      telemetry.API
	sessions *atomic.Uint64
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url '%s' must be absolute", opts.BaseUrl)
	}

	return &Client{
		opts:     opts.withDefaults(),
		baseUrl:  baseUrl,
		tel:      telemetry.NewScopedAPI("elms", tel),
		sessions: &atomic.Uint64{},
	}, nil
}

func (c *Client) Options() Options {
	return c.opts
}

// newHttp creates the transport for a single session, each session has its
// own cookie jar and rate limiter.
func (c *Client) newHttp() (*resty.Client, error) {
	httpClient := resty.New()
	httpClient.SetBaseURL(c.baseUrl.String())

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if c.opts.BypassCloudflare {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(c.baseUrl.Hostname()))
	httpClient.SetTimeout(c.opts.Timeout)

	limit := rate.Inf
	if c.opts.RequestsPerSecond > 0 {
		limit = rate.Limit(c.opts.RequestsPerSecond)
	}
	// burst >= workers just means that no worker is starved on startup
	rateLimiter := rate.NewLimiter(limit, c.opts.ProfileWorkers)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, telemetry.NewScopedAPI("http", c.tel))
	restyutil.DumpMessages(
		httpClient,
		fmt.Sprintf("session%d", c.sessions.Add(1)),
		c.opts.Dump,
	)

	return httpClient, nil
}

// Session is an authenticated portal session, the cookies live in Http.
type Session struct {
	BaseUrl *url.URL
	Http    *resty.Client
	Sesskey string

	opts Options
	tel  telemetry.API
}
