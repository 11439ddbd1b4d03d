// Package cornell is a client for the Cornell Class Roster API.
package cornell

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
)

const serviceName = "class roster"

var (
	retryDelay  = time.Second // mockable
	maxAttempts = 3
	userAgent   = "course-mapper/1.0"
)

// Client handles HTTP requests to the Class Roster API.
// Requests are serialized through a limiter allowing one call per `catalog.minInterval`.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     core.Logger
}

var _ catalog.Source = (*Client)(nil)

func NewClient(conf *core.Config, logger core.Logger) *Client {
	limit := rate.Inf
	if conf.Catalog.MinInterval > 0 {
		limit = rate.Every(conf.Catalog.MinInterval)
	}
	return &Client{
		baseURL:    strings.TrimRight(conf.Catalog.BaseURL, "/"),
		httpClient: &http.Client{Timeout: conf.Catalog.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

func (c *Client) Rosters(ctx context.Context) ([]catalog.Roster, error) {
	var data rostersData
	if _, err := c.get(ctx, "/config/rosters.json", nil, &data); err != nil {
		return nil, errors.Wrap(err, "fetching rosters")
	}
	rosters := make([]catalog.Roster, 0, len(data.Rosters))
	for _, r := range data.Rosters {
		rosters = append(rosters, catalog.Roster{Slug: r.Slug, Description: r.Descr, IsDefault: r.IsDefault})
	}
	return rosters, nil
}

func (c *Client) Subjects(ctx context.Context, roster string) ([]catalog.Subject, error) {
	var data subjectsData
	found, err := c.get(ctx, "/config/subjects.json", url.Values{"roster": {roster}}, &data)
	if err != nil {
		return nil, errors.Wrap(err, "fetching subjects")
	}
	if !found {
		return nil, catalog.ErrRosterNotFound
	}
	subjects := make([]catalog.Subject, 0, len(data.Subjects))
	for _, s := range data.Subjects {
		descr := s.Descr
		if s.DescrFormal != "" {
			descr = s.DescrFormal
		}
		subjects = append(subjects, catalog.Subject{Value: s.Value, Descr: descr})
	}
	return subjects, nil
}

func (c *Client) Search(ctx context.Context, roster, subject, q string, levels []int) ([]catalog.Course, error) {
	params := url.Values{"roster": {roster}, "subject": {subject}}
	if q != "" {
		params.Set("q", q)
	}
	for _, l := range levels {
		params.Add("classLevels[]", strconv.Itoa(l))
	}

	var data classesData
	if _, err := c.get(ctx, "/search/classes.json", params, &data); err != nil {
		return nil, errors.Wrap(err, "searching classes")
	}
	courses := make([]catalog.Course, 0, len(data.Classes))
	for _, cls := range data.Classes {
		course, err := cls.toCourse(roster)
		if err != nil {
			return nil, core.NewUpstreamError(serviceName, 0, err.Error())
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// get fetches `path` and decodes the envelope's data into dst.
// found is false when the API reports that nothing matched (no data is decoded then).
func (c *Client) get(ctx context.Context, path string, params url.Values, dst interface{}) (found bool, err error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := c.getWithRetries(ctx, reqURL)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, errors.Wrap(err, "reading response body")
	}

	var env envelope
	if err = json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return false, core.NewUpstreamError(serviceName, resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return false, core.NewUpstreamError(serviceName, 0, "malformed response: "+err.Error())
	}

	if env.Status != "success" {
		if isNoResults(env.Message) {
			return false, nil
		}
		msg := env.Message
		if msg == "" {
			msg = "status " + env.Status
		}
		return false, core.NewUpstreamError(serviceName, resp.StatusCode, msg)
	}
	if err = json.Unmarshal(env.Data, dst); err != nil {
		return false, core.NewUpstreamError(serviceName, 0, "malformed data: "+err.Error())
	}
	return true, nil
}

func isNoResults(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "no classes") || strings.Contains(msg, "not found") || strings.Contains(msg, "no subjects")
}

// getWithRetries attempts an HTTP GET up to maxAttempts times on transport errors and 502/503/504.
func (c *Client) getWithRetries(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "waiting for rate limiter")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, errors.Wrap(err, "creating request")
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		case resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable ||
			resp.StatusCode == http.StatusGatewayTimeout:
			_ = resp.Body.Close()
			lastErr = core.NewUpstreamError(serviceName, resp.StatusCode, "transient status")
		default:
			return resp, nil
		}

		if attempt < maxAttempts-1 {
			c.logger.Warn(fmt.Sprintf("class roster: retrying (attempt %d/%d)", attempt+1, maxAttempts), lastErr)
			select {
			case <-time.After(time.Duration(attempt+1) * retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if core.IsUpstream(lastErr) {
		return nil, lastErr
	}
	return nil, core.NewUpstreamError(serviceName, 0, fmt.Sprintf("failed after %d attempts: %v", maxAttempts, lastErr))
}
