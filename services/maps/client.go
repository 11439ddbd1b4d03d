// Package maps is a client for the Google Maps Geocoding and Directions APIs.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/twpayne/go-polyline"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/campus"
)

const serviceName = "google maps"

var errMissingAPIKey = core.NewUpstreamError(serviceName, 0, "maps.apiKey is not configured")

// Client handles HTTP requests to the Google Maps web services.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ campus.Maps = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(conf.Maps.BaseURL, "/"),
		apiKey:     conf.Maps.APIKey,
		httpClient: &http.Client{Timeout: conf.Maps.Timeout},
	}
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		PlaceID          string `json:"place_id"`
		Geometry         struct {
			Location latLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Duration struct {
				Value int `json:"value"` // seconds
			} `json:"duration"`
			Distance struct {
				Value int `json:"value"` // meters
			} `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
}

// Geocode returns the first match for address.
func (c *Client) Geocode(ctx context.Context, address string) (campus.Location, error) {
	var resp geocodeResponse
	if err := c.get(ctx, "/geocode/json", url.Values{"address": {address}}, &resp); err != nil {
		return campus.Location{}, errors.Wrap(err, "geocoding")
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage, campus.ErrLocationNotFound); err != nil {
		return campus.Location{}, err
	}
	if len(resp.Results) == 0 {
		return campus.Location{}, campus.ErrLocationNotFound
	}

	res := resp.Results[0]
	return campus.Location{
		Lat:              res.Geometry.Location.Lat,
		Lng:              res.Geometry.Location.Lng,
		FormattedAddress: res.FormattedAddress,
		PlaceID:          res.PlaceID,
	}, nil
}

// WalkingDirections returns the first walking route, its overview polyline decoded into Path.
func (c *Client) WalkingDirections(ctx context.Context, from, to campus.Location) (campus.Directions, error) {
	params := url.Values{
		"origin":      {latLngParam(from)},
		"destination": {latLngParam(to)},
		"mode":        {"walking"},
	}
	var resp directionsResponse
	if err := c.get(ctx, "/directions/json", params, &resp); err != nil {
		return campus.Directions{}, errors.Wrap(err, "fetching directions")
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage, campus.ErrNoRoute); err != nil {
		return campus.Directions{}, err
	}
	if len(resp.Routes) == 0 {
		return campus.Directions{}, campus.ErrNoRoute
	}

	route := resp.Routes[0]
	dirs := campus.Directions{Polyline: route.OverviewPolyline.Points}
	for _, leg := range route.Legs {
		dirs.DurationSeconds += leg.Duration.Value
		dirs.DistanceMeters += leg.Distance.Value
	}
	path, err := DecodePolyline(dirs.Polyline)
	if err != nil {
		return campus.Directions{}, core.NewUpstreamError(serviceName, 0, err.Error())
	}
	dirs.Path = path
	return dirs, nil
}

// DecodePolyline decodes an encoded polyline into (lng, lat) points.
func DecodePolyline(encoded string) ([]orb.Point, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errors.Wrap(err, "decoding polyline")
	}
	if len(rest) > 0 {
		return nil, errors.Errorf("decoding polyline: %d trailing bytes", len(rest))
	}
	points := make([]orb.Point, 0, len(coords))
	for _, c := range coords {
		points = append(points, orb.Point{c[1], c[0]})
	}
	return points, nil
}

func latLngParam(l campus.Location) string {
	return fmt.Sprintf("%.6f,%.6f", l.Lat, l.Lng)
}

// checkStatus maps the Google status codes. OK is success, "nothing found" statuses map to notFound.
func checkStatus(status, msg string, notFound error) error {
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return notFound
	default:
		if msg == "" {
			msg = status
		} else {
			msg = status + ": " + msg
		}
		return core.NewUpstreamError(serviceName, 0, msg)
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst interface{}) error {
	if c.apiKey == "" {
		return errMissingAPIKey
	}
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return core.NewUpstreamError(serviceName, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return core.NewUpstreamError(serviceName, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if err = json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return core.NewUpstreamError(serviceName, 0, "malformed response: "+err.Error())
	}
	return nil
}
