package httpkit

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSOptions configure the CORS middleware. Zero values get defaults suited
// to a browser front end that uploads tables and downloads archives.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAgeSeconds    int
}

// ParseOrigins splits a comma separated CORS_ALLOWED_ORIGINS value.
func ParseOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func CORS(opt CORSOptions) func(http.Handler) http.Handler {
	if len(opt.AllowedMethods) == 0 {
		opt.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(opt.AllowedHeaders) == 0 {
		opt.AllowedHeaders = []string{"Content-Type", "Accept", "X-Request-ID"}
	}
	if len(opt.ExposedHeaders) == 0 {
		// el front necesita el nombre del zip y el id para soporte
		opt.ExposedHeaders = []string{"Content-Disposition", "X-Request-ID"}
	}
	if opt.MaxAgeSeconds == 0 {
		opt.MaxAgeSeconds = 600
	}

	origins := ParseOrigins(strings.Join(opt.AllowedOrigins, ","))
	anyOrigin := slices.Contains(origins, "*")

	headers := map[string]string{
		"Access-Control-Allow-Methods":  strings.Join(opt.AllowedMethods, ", "),
		"Access-Control-Allow-Headers":  strings.Join(opt.AllowedHeaders, ", "),
		"Access-Control-Expose-Headers": strings.Join(opt.ExposedHeaders, ", "),
		"Access-Control-Max-Age":        strconv.Itoa(opt.MaxAgeSeconds),
	}
	if opt.AllowCredentials {
		headers["Access-Control-Allow-Credentials"] = "true"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && (anyOrigin || slices.Contains(origins, origin)) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				for k, v := range headers {
					h.Set(k, v)
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
