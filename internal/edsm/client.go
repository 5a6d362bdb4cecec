// Package edsm talks to the EDSM public API and serves it as a survey
// data source, falling back from sphere queries to tiled cube queries.
package edsm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://www.edsm.net"
	spherePath     = "/api-v1/sphere-systems"
	cubePath       = "/api-v1/cube-systems"

	userAgent = "sphere-survey/1.0"
)

// Client is a rate-limited EDSM HTTP client.
// EDSM asks clients to stay well under 360 requests per minute.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewClient creates a client against the public EDSM endpoint.
func NewClient() *Client {
	return NewClientWithBaseURL(defaultBaseURL)
}

// NewClientWithBaseURL creates a client against a custom endpoint (tests).
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(4), 4), // 4 req/sec, burst 4
		baseURL: baseURL,
	}
}

// wireSystem is one system entry as EDSM returns it.
type wireSystem struct {
	Name   string `json:"name"`
	ID64   int64  `json:"id64"`
	Coords *struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		Z float64 `json:"z"`
	} `json:"coords"`
}

// SphereSystems requests all known systems within radius of (x, y, z).
func (c *Client) SphereSystems(x, y, z, radius float64) ([]wireSystem, error) {
	params := url.Values{}
	params.Set("x", formatFloat(x))
	params.Set("y", formatFloat(y))
	params.Set("z", formatFloat(z))
	params.Set("radius", formatFloat(radius))
	params.Set("showCoordinates", "1")
	return c.get(spherePath, params)
}

// CubeSystems requests all known systems in an axis-aligned cube of the
// given edge size centered on (x, y, z). EDSM caps size at 200 ly.
func (c *Client) CubeSystems(x, y, z, size float64) ([]wireSystem, error) {
	params := url.Values{}
	params.Set("x", formatFloat(x))
	params.Set("y", formatFloat(y))
	params.Set("z", formatFloat(z))
	params.Set("size", formatFloat(size))
	params.Set("showCoordinates", "1")
	return c.get(cubePath, params)
}

func (c *Client) get(path string, params url.Values) ([]wireSystem, error) {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return nil, err
	}

	req, err := http.NewRequest("GET", c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("EDSM %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeSystems(body)
}

// decodeSystems handles the three legal EDSM response shapes: a system
// array, an object wrapping a "systems" array, or an error object with an
// "error"/"msg" field. Malformed entries within a list are skipped.
func decodeSystems(body []byte) ([]wireSystem, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err == nil {
		return decodeEntries(raws), nil
	}

	var obj struct {
		Systems []json.RawMessage `json:"systems"`
		Error   string            `json:"error"`
		Msg     string            `json:"msg"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("unexpected EDSM response: %w", err)
	}
	if obj.Systems != nil {
		return decodeEntries(obj.Systems), nil
	}
	if obj.Error != "" {
		return nil, fmt.Errorf("EDSM: %s", obj.Error)
	}
	if obj.Msg != "" {
		return nil, fmt.Errorf("EDSM: %s", obj.Msg)
	}
	return nil, fmt.Errorf("unexpected EDSM response shape")
}

func decodeEntries(raws []json.RawMessage) []wireSystem {
	out := make([]wireSystem, 0, len(raws))
	for _, raw := range raws {
		var ws wireSystem
		if err := json.Unmarshal(raw, &ws); err != nil {
			continue
		}
		if ws.Name == "" || ws.Coords == nil {
			continue
		}
		out = append(out, ws)
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
