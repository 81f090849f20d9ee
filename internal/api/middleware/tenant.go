package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// TenantIDKey is the context key for the tenant (organization) ID.
const TenantIDKey contextKey = "tenant_id"

// TenantExtractor extracts tenant information from the request.
// It checks the X-Tenant-ID header, then the tenant query parameter,
// and falls back to "default".
func TenantExtractor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := ""

		// Priority 1: X-Tenant-ID header
		if h := r.Header.Get("X-Tenant-ID"); h != "" {
			tenant = strings.TrimSpace(h)
		}

		// Priority 2: tenant query parameter
		if tenant == "" {
			if q := r.URL.Query().Get("tenant"); q != "" {
				tenant = strings.TrimSpace(q)
			}
		}

		if tenant == "" {
			tenant = "default"
		}

		ctx := context.WithValue(r.Context(), TenantIDKey, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTenantID retrieves the tenant ID from the request context.
func GetTenantID(ctx context.Context) string {
	if v, ok := ctx.Value(TenantIDKey).(string); ok {
		return v
	}
	return "default"
}
