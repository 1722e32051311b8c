package feed

import (
	"net"
	"net/http"
	"net/url"

	"github.com/oshokin/noise-monitor/internal/logger"
)

// checkOrigin accepts same-origin, loopback and private-network origins.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	ctx := r.Context()

	u, err := url.Parse(origin)
	if err != nil {
		logger.WarnKV(ctx, "Rejected websocket connection: invalid origin", "origin", origin)
		return false
	}

	host := u.Hostname()
	if host == "localhost" {
		return true
	}

	requestHost := r.Host
	if h, _, splitErr := net.SplitHostPort(requestHost); splitErr == nil {
		requestHost = h
	}

	if host == requestHost {
		return true
	}

	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		return true
	}

	logger.WarnKV(ctx, "Rejected websocket connection", "origin", origin, "host", host)

	return false
}
