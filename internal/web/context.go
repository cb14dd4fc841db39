package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/exotransit/internal/core"
	"github.com/JonMunkholm/exotransit/internal/web/middleware"
)

// SourceHTTP tags imports made through the web server.
const SourceHTTP = "http"

// withRequestMetadata adds the client IP and import source for history.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithClientIP(ctx, middleware.ClientIP(r))
	return core.ContextWithSource(ctx, SourceHTTP)
}
