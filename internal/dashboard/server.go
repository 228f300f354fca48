package dashboard

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ds-job-scraper/internal/enrich"
	"ds-job-scraper/internal/metrics"
	"ds-job-scraper/internal/storage"
)

type Server struct {
	loader *Loader
	store  storage.ObjectStore
	keys   storage.Keys
	router *gin.Engine
}

// NewServer wires the routes. store may be nil, in which case /api/status
// reports that no remote storage is configured.
func NewServer(loader *Loader, store storage.ObjectStore, keys storage.Keys, am *metrics.ArchiveMetrics) *Server {
	s := &Server{
		loader: loader,
		store:  store,
		keys:   keys,
		router: gin.New(),
	}
	s.router.Use(gin.Logger(), gin.Recovery())

	s.router.GET("/health", s.health)
	api := s.router.Group("/api")
	api.GET("/jobs", s.jobs)
	api.GET("/stats", s.stats)
	api.GET("/latest", s.latest)
	api.GET("/status", s.status)
	if am != nil {
		s.router.GET("/metrics", gin.WrapH(am.Handler()))
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[dashboard] 🌐 Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("[dashboard] 🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) rows(c *gin.Context) ([]enrich.Row, *Dataset, bool) {
	ds, err := s.loader.Load(c.Request.Context())
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, ErrNoArchive) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	return enrich.Rows(ds.Records), ds, true
}

func (s *Server) jobs(c *gin.Context) {
	rows, ds, ok := s.rows(c)
	if !ok {
		return
	}
	q := Query{
		Source:  c.Query("source"),
		Company: c.Query("company"),
		Title:   c.Query("title"),
	}
	rows = Filter(rows, q)
	c.JSON(http.StatusOK, gin.H{
		"origin": ds.Origin,
		"count":  len(rows),
		"jobs":   rows,
	})
}

func (s *Server) stats(c *gin.Context) {
	rows, _, ok := s.rows(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, Compute(rows))
}

func (s *Server) latest(c *gin.Context) {
	rows, _, ok := s.rows(c)
	if !ok {
		return
	}
	latest := Latest(rows)
	c.JSON(http.StatusOK, gin.H{"count": len(latest), "jobs": latest})
}

func (s *Server) status(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no remote storage configured"})
		return
	}
	st, err := storage.LoadStatus(c.Request.Context(), s.store, s.keys)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}
