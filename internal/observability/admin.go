package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/rconsole/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is what /health reports about the running instance.
type Status struct {
	Role       string `json:"role"`
	Identity   int64  `json:"identity"`
	InstanceID string `json:"instance_id"`
	Port       int    `json:"port"`
}

// AdminServer serves /health and /metrics for one rconsole process.
type AdminServer struct {
	status    Status
	startedAt time.Time
	router    *gin.Engine
}

func NewAdminServer(status Status, corsOrigins []string) *AdminServer {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logging.Component("admin")))
	r.Use(RequestMetricsMiddleware())
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	a := &AdminServer{status: status, startedAt: time.Now(), router: r}
	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return a
}

func (a *AdminServer) Handler() http.Handler {
	return a.router
}

func (a *AdminServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"uptime":      time.Since(a.startedAt).String(),
		"role":        a.status.Role,
		"identity":    a.status.Identity,
		"instance_id": a.status.InstanceID,
		"port":        a.status.Port,
	})
}

// Serve listens on addr until ctx is done.
func (a *AdminServer) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return a.ServeListener(ctx, ln)
}

func (a *AdminServer) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log := logging.Component("admin")
	log.Info().Str("addr", ln.Addr().String()).Msg("observability.AdminServer listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
