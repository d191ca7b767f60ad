package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenheaven/floorsync/api/controllers"
	"github.com/greenheaven/floorsync/api/middleware"
	"github.com/greenheaven/floorsync/internal/floor"
	"github.com/greenheaven/floorsync/pkg/config"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/metrics"
	"github.com/greenheaven/floorsync/pkg/redis"
)

// Deps are the collaborators the HTTP surface needs. Redis, Metrics and
// Gatherer are optional.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	Engine     *floor.Engine
	Hub        controllers.Subscriber
	InstanceID string
	Redis      *redis.Client
	Metrics    *metrics.HTTPMetrics
	Gatherer   prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	engine := deps.Engine

	// keep typed nils out of the interfaces below
	var (
		idempotencyStore redis.IdempotencyStore
		redisPinger      controllers.Pinger
		limiter          *redis.Client
	)
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		redisPinger = deps.Redis
		limiter = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"storage": controllers.PingFunc(engine.Ready),
			"redis":   redisPinger,
		}))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	alertPolicy := middleware.NewRateLimitPolicy(
		"alerts",
		cfg.RateLimit.AlertWindow,
		cfg.RateLimit.AlertIPLimit,
		cfg.RateLimit.AlertTableLimit,
	)
	alertLimit := func(next http.Handler) http.Handler { return next }
	if limiter != nil {
		alertLimit = middleware.RateLimit(alertPolicy, limiter, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/system/status", controllers.SystemStatus(cfg, engine, deps.InstanceID))

		// attached per route so the idempotency rules see the full route pattern
		idem := middleware.Idempotency(idempotencyStore, logg)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(engine.Orders, logg))
			r.With(idem).Post("/", controllers.PlaceOrder(engine.Orders, logg))
			r.Get("/stats", controllers.OrderStats(engine.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(engine.Orders, logg))
			r.With(idem).Patch("/{orderId}/status", controllers.UpdateOrderStatus(engine.Orders, logg))
		})
		r.With(idem).Post("/manual-orders", controllers.RecordManualOrder(engine.Orders, logg))

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", controllers.ListAlerts(engine.Alerts, logg))
			r.With(alertLimit, idem).Post("/", controllers.RaiseAlert(engine.Alerts, logg))
			r.Delete("/", controllers.ClearAllAlerts(engine.Alerts, logg))
			r.Post("/{alertId}/acknowledge", controllers.AcknowledgeAlert(engine.Alerts, logg))
			r.Post("/{alertId}/respond", controllers.RespondToAlert(engine.Alerts, logg))
			r.Post("/{alertId}/resolve", controllers.ResolveAlert(engine.Alerts, logg))
		})

		r.Route("/tables", func(r chi.Router) {
			r.Get("/", controllers.ListTables(engine.Tables, logg))
			r.Get("/{tableId}", controllers.GetTable(engine.Tables, logg))
			r.Post("/{tableId}/seat", controllers.SeatTable(engine.Tables, logg))
			r.Post("/{tableId}/clean", controllers.CleanTable(engine.Tables, logg))
			r.Delete("/{tableId}/alerts", controllers.ClearTableAlerts(engine.Alerts, logg))
		})

		r.Get("/totals", controllers.DailyTotals(engine.Totals, logg))

		if deps.Hub != nil {
			r.Route("/stream", func(r chi.Router) {
				r.Get("/staff", controllers.StaffStream(deps.Hub, cfg.App.StreamKeepAlive, logg))
				r.Get("/tables/{tableId}", controllers.TableStream(deps.Hub, cfg.App.StreamKeepAlive, logg))
			})
		}
	})

	return r
}
