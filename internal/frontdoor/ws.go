package frontdoor

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	gorillaws "github.com/gorilla/websocket"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkWebSocketOrigin,
}

// checkWebSocketOrigin allows same-origin and localhost browsers through and
// refuses everything else, preventing cross-site WebSocket hijacking.
func checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") ||
		strings.HasPrefix(origin, "https://localhost") || strings.HasPrefix(origin, "https://127.0.0.1") {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := r.Host
	if colon := strings.LastIndex(host, ":"); colon != -1 && !strings.Contains(host, "]") {
		host = host[:colon]
	}
	return originURL.Hostname() == host
}

// queryDimension parses a cols/rows query parameter, defaulting when absent
// or invalid.
func queryDimension(c interface{ Query(string) string }, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

const (
	defaultCols = 80
	defaultRows = 24
)
