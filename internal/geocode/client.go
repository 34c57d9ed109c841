// Package geocode resolves free-text place queries into map coordinates
// using a Nominatim-compatible search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"truckspot/internal/geo"
	"truckspot/internal/metrics"
)

// Place is one search candidate, best match first.
type Place struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
}

// Client talks to the place-search service. Requests are rate limited
// (public Nominatim allows one request per second) and optionally cached
// in Redis.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	redis      *redis.Client
	cacheTTL   time.Duration
	logger     *zerolog.Logger
}

func NewClient(baseURL, userAgent string, ratePerSecond float64, logger *zerolog.Logger) *Client {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		logger:     logger,
	}
}

// UseRedisCache configures optional Redis caching of search results.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search returns up to five candidates for the query, ordered by
// relevance. The caller uses the first valid candidate as the implicit
// map-recenter target.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	cacheKey := "geocode:" + strings.ToLower(query)
	var places []Place
	if c.readCache(ctx, cacheKey, &places) {
		metrics.IncGeocodeLookup("cache")
		return places, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", "5")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "sv-SE,sv;q=0.9,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncGeocodeLookup("error")
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.IncGeocodeLookup("error")
		return nil, fmt.Errorf("geocode status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		metrics.IncGeocodeLookup("error")
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	places = make([]Place, 0, len(results))
	for _, r := range results {
		lat, err1 := strconv.ParseFloat(r.Lat, 64)
		lng, err2 := strconv.ParseFloat(r.Lon, 64)
		if err1 != nil || err2 != nil || !(geo.Point{Lat: lat, Lng: lng}).Valid() {
			continue
		}
		places = append(places, Place{Lat: lat, Lng: lng, DisplayName: r.DisplayName})
	}

	metrics.IncGeocodeLookup("ok")
	c.writeCache(ctx, cacheKey, places)
	return places, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("geocode cache write failed")
	}
}
