// Package httpcache sets HTTP caching headers on storefront responses served
// through the stale-while-revalidate engine.
package httpcache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/storefront-cache/pkg/policy"
	"github.com/Sternrassler/storefront-cache/pkg/swr"
	"github.com/labstack/echo/v4"
)

// Header names and values.
const (
	HeaderCacheStatus  = "X-Cache-Status"
	HeaderCacheTier    = "X-Cache-Tier"
	HeaderCacheControl = "Cache-Control"
	HeaderETag         = "ETag"
	HeaderIfNoneMatch  = "If-None-Match"

	StatusHit  = "HIT"
	StatusMiss = "MISS"

	// StaleWhileRevalidate is how long downstream caches may serve a stale
	// response while revalidating.
	StaleWhileRevalidate = 24 * time.Hour
)

// pastExpiry is sent with no-store responses.
const pastExpiry = "Sat, 01 Jan 2000 00:00:00 GMT"

// ETag returns a quoted strong validator for body.
func ETag(body []byte) string {
	sum := md5.Sum(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// Apply sets public caching headers for res. maxAge is the client-side
// lifetime; zero falls back to the entry's own TTL.
func Apply(c echo.Context, res swr.Result, maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = res.TTL
	}

	h := c.Response().Header()
	h.Set(HeaderCacheControl, fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d",
		int(maxAge/time.Second), int(StaleWhileRevalidate/time.Second)))
	h.Add(echo.HeaderVary, echo.HeaderAcceptEncoding)
	h.Set(HeaderETag, ETag(res.Value))
	if !res.StoredAt.IsZero() {
		h.Set(echo.HeaderLastModified, res.StoredAt.UTC().Format(http.TimeFormat))
	}
	if res.Hit {
		h.Set(HeaderCacheStatus, StatusHit)
	} else {
		h.Set(HeaderCacheStatus, StatusMiss)
	}
}

// NoStore forbids every cache between server and client from storing the
// response.
func NoStore(c echo.Context) {
	h := c.Response().Header()
	h.Set(HeaderCacheControl, "no-store, no-cache, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", pastExpiry)
}

// NotModified reports whether the request's If-None-Match matches etag.
func NotModified(c echo.Context, etag string) bool {
	inm := c.Request().Header.Get(HeaderIfNoneMatch)
	if inm == "" {
		return false
	}
	for _, candidate := range strings.Split(inm, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// JSON writes body with the caching headers of res, answering 304 when the
// client already holds the same representation. The ETag covers the cached
// value, so it stays stable across hits whatever body wraps it.
func JSON(c echo.Context, res swr.Result, maxAge time.Duration, body any) error {
	Apply(c, res, maxAge)
	if NotModified(c, ETag(res.Value)) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, body)
}

// Middleware marks responses for paths the policy refuses to cache as
// no-store, and reports the matching policy rule on cacheable GETs.
func Middleware(p *policy.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := strings.TrimPrefix(c.Request().URL.Path, "/")
			_, rule := p.Match(path)

			if rule == "no-cache" || c.Request().Method != http.MethodGet {
				NoStore(c)
			} else {
				c.Response().Header().Set(HeaderCacheTier, rule)
			}
			return next(c)
		}
	}
}
