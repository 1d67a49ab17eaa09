package ports

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	allowedMethods  = "GET,POST"
	allowedHeaders  = "Content-Type, X-User-Id, X-Api-Key"
	preflightMaxAge = "600"
)

// AllowedOrigins are the dashboard domains that may call the gateway from a browser.
// A domain allows itself and every subdomain, over https on the default port.
type AllowedOrigins struct {
	domains []string
}

func NewAllowedOrigins(domains ...string) (*AllowedOrigins, error) {
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		switch {
		case domain == "":
			return nil, fmt.Errorf("allowed origin domain should not be empty")
		case strings.HasPrefix(domain, "."):
			return nil, fmt.Errorf("allowed origin domain %s should not start with a dot", domain)
		case strings.Contains(domain, "://"):
			return nil, fmt.Errorf("allowed origin domain %s should not contain a scheme", domain)
		case strings.ContainsAny(domain, "/:@"):
			return nil, fmt.Errorf("allowed origin domain %s should be a bare host name", domain)
		}
		normalized = append(normalized, strings.ToLower(domain))
	}
	return &AllowedOrigins{domains: normalized}, nil
}

// Allows reports whether a browser on origin may read responses from the gateway
func (o *AllowedOrigins) Allows(origin string) bool {
	host, ok := dashboardHost(origin)
	if !ok {
		return false
	}

	for _, domain := range o.domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// dashboardHost returns the lowercased host of an https origin without port,
// path or credentials
func dashboardHost(origin string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "https" || u.Opaque != "" {
		return "", false
	}
	if u.User != nil || u.Port() != "" || (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		return "", false
	}
	if u.Hostname() == "" {
		return "", false
	}
	return strings.ToLower(u.Hostname()), true
}

func writePreflight(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
	w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
	w.Header().Set("Access-Control-Max-Age", preflightMaxAge)
	w.WriteHeader(http.StatusNoContent)
}

// BuildCORSMiddleware echoes allowed dashboard origins and answers their preflights.
// Requests from other origins reach next without CORS headers.
func BuildCORSMiddleware(origins *AllowedOrigins) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			if !origins.Allows(origin) {
				next(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			if r.Method == http.MethodOptions {
				writePreflight(w)
				return
			}
			next(w, r)
		}
	}
}

// BuildCORSHandler serves the OPTIONS route of an endpoint
func BuildCORSHandler(origins *AllowedOrigins) http.HandlerFunc {
	return BuildCORSMiddleware(origins)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
