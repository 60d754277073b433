// Package fingerprint derives the coarse 32-bit visitor fingerprint that seeds
// the eligibility draw. It is not an identity and collisions are acceptable.
package fingerprint

import (
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
)

const delimiter = "|"

// Compute joins signals with "|" and hashes them with 32-bit FNV-1a.
func Compute(signals []string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strings.Join(signals, delimiter)))
	return h.Sum32()
}

// ClientSignals are the browser-reported environment values.
type ClientSignals struct {
	UserAgent      string `json:"userAgent"`
	Language       string `json:"language"`
	ScreenWidth    int    `json:"screenWidth"`
	ScreenHeight   int    `json:"screenHeight"`
	ColorDepth     int    `json:"colorDepth"`
	TimeZone       string `json:"timeZone"`
	TimezoneOffset int    `json:"timezoneOffset"`
}

// Signals returns the values in their fixed hashing order.
func (c ClientSignals) Signals() []string {
	return []string{
		c.UserAgent,
		c.Language,
		strconv.Itoa(c.ScreenWidth),
		strconv.Itoa(c.ScreenHeight),
		strconv.Itoa(c.ColorDepth),
		c.TimeZone,
		strconv.Itoa(c.TimezoneOffset),
	}
}

// Fingerprint hashes the client signals.
func (c ClientSignals) Fingerprint() uint32 {
	return Compute(c.Signals())
}

// ServerSignals is the request-derived fallback signal list.
func ServerSignals(userAgent, acceptLanguage, clientIP string) []string {
	return []string{userAgent, acceptLanguage, clientIP}
}

// FromRequest fingerprints a request from its headers and the resolved client IP.
func FromRequest(r *http.Request, clientIP string) uint32 {
	return Compute(ServerSignals(r.UserAgent(), r.Header.Get("Accept-Language"), clientIP))
}

// Resolve prefers browser-reported signals and falls back to the request.
func Resolve(client *ClientSignals, r *http.Request, clientIP string) uint32 {
	if client != nil && client.UserAgent != "" {
		return client.Fingerprint()
	}
	return FromRequest(r, clientIP)
}
