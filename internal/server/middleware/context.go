package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/pinewilt/kgcurate/backend/internal/queue"
	"github.com/pinewilt/kgcurate/backend/internal/storage"
	"github.com/pinewilt/kgcurate/backend/pkg/ai"
	"github.com/pinewilt/kgcurate/backend/pkg/growth"
	"github.com/pinewilt/kgcurate/backend/pkg/store"
	"github.com/pinewilt/kgcurate/backend/pkg/vision"
)

// App holds the collaborators built once at start-up and shared by every
// request.
type App struct {
	Store      store.GraphStorage
	Growth     *growth.Orchestrator
	Recognizer vision.Recognizer
	// Archive is nil when no bucket is configured.
	Archive *storage.ImageArchive
	Events  queue.Publisher
	// Tiers lists the similarity tiers in fallback order, for diagnostics.
	Tiers []string
	// Usage maps a model role ("chat", "vision") to its client's usage.
	// Roles without a configured client are absent.
	Usage map[string]ai.UsageReporter
}

// ModelUsage snapshots the usage of every configured model role.
func (a *App) ModelUsage() map[string]ai.ModelMetrics {
	out := make(map[string]ai.ModelMetrics, len(a.Usage))
	for role, r := range a.Usage {
		out[role] = r.GetMetrics()
	}
	return out
}

type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware hands app to every handler through AppContext.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	if app.Events == nil {
		app.Events = queue.Nop{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
