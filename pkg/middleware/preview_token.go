// Package middleware provides HTTP middleware for request identity and
// preview token extraction.
package middleware

import (
	"net/http"
	"strings"

	"github.com/openstats/databank/pkg/contextkeys"
)

// PreviewTokenHeader is the request header carrying a preview token ID
const PreviewTokenHeader = "Preview-Token"

// PreviewTokenMiddleware copies the Preview-Token header into the request
// context. Presence of a token is not an error and neither is its absence;
// validation happens during access evaluation, after the public-visibility
// check, so an invalid token can never block access to public data.
func PreviewTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenID := strings.TrimSpace(r.Header.Get(PreviewTokenHeader))
		if tokenID != "" {
			ctx := contextkeys.WithPreviewToken(r.Context(), tokenID)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}
