package server

import (
	"net/http"
	"os"
	"strings"

	"github.com/chatrag/chatrag/config"
)

const (
	versionHeader   = "X-Chatrag-Version"
	envHeaderPrefix = "env:"
)

// WithVersionHeader stamps every response with the running chatrag build.
func WithVersionHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setIfMissing(w.Header(), versionHeader, config.VersionString)
		next.ServeHTTP(w, r)
	})
}

// WithResponseHeaders sets the operator's server.custom_headers on every
// response. A value written as "env:NAME" is read from the environment when the
// router is built, so secrets stay out of config.yaml. Headers a handler has
// already set are left alone.
func WithResponseHeaders(headers map[string]string) func(http.Handler) http.Handler {
	resolved := make(map[string]string, len(headers))
	for name, value := range headers {
		resolved[name] = resolveHeaderValue(value)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for name, value := range resolved {
				setIfMissing(w.Header(), name, value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveHeaderValue(value string) string {
	if name, ok := strings.CutPrefix(value, envHeaderPrefix); ok {
		return os.Getenv(name)
	}
	return value
}

func setIfMissing(h http.Header, name, value string) {
	if h.Get(name) == "" {
		h.Set(name, value)
	}
}
