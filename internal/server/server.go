package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/icpcboard/internal/contest"
	"github.com/victornm/icpcboard/internal/event"
	"github.com/victornm/icpcboard/internal/mirror"
	"github.com/victornm/icpcboard/internal/telemetry"
	"github.com/victornm/icpcboard/internal/wire"
)

type Config struct {
	// HTTP is the ops listener (metrics, pprof, health). Disabled when the
	// port is 0; the contest protocol itself always runs on the session's
	// reader/writer pair.
	HTTP struct {
		Port int32
	}

	Redis struct {
		// Mirror holds the live scoreboard copy. Disabled when no
		// addresses are configured.
		Mirror struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis redis.UniversalClient // nil when the mirror is disabled
	}

	service struct {
		contest *contest.Service
		mirror  *mirror.Service
	}

	session *wire.Session
	http    *http.Server

	shutdownOnce sync.Once
}

// Init wires the engine: event bus, optional redis mirror, contest service,
// the command session and the ops listener.
func Init(c Config, in io.Reader, out io.Writer) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService(in, out)
	s.initOps()
	return s, nil
}

func (s *Server) initInfra() error {
	if len(s.c.Redis.Mirror.Addrs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Mirror.Addrs,
		Password: s.c.Redis.Mirror.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initService(in io.Reader, out io.Writer) {
	s.service.contest = contest.NewService(contest.Config{
		EventBus: s.eb,
		Metrics:  telemetry.NewMetrics(prometheus.DefaultRegisterer),
	})

	if s.infra.redis != nil {
		s.service.mirror = mirror.NewService(mirror.Config{
			EventBus: s.eb,
			Redis:    s.infra.redis,
			Prefix:   s.c.Redis.Mirror.Prefix,
		})
	}

	s.session = wire.NewSession(wire.Config{
		Contest: s.service.contest,
		Reader:  in,
		Writer:  out,
	})
}

func (s *Server) initOps() {
	if s.c.HTTP.Port == 0 {
		return
	}

	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	e.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Start runs the command session to completion. The ops listener, when
// enabled, serves for the lifetime of the session.
func (s *Server) Start() error {
	ctx := context.Background()

	var eg errgroup.Group

	if s.http != nil {
		eg.Go(func() error {
			slog.InfoContext(ctx, fmt.Sprintf("server: ops listening on port %d", s.c.HTTP.Port))
			if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	eg.Go(func() error {
		defer s.Shutdown()
		return s.session.Run(ctx)
	})

	return eg.Wait()
}

func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if s.http != nil {
			if err := s.http.Shutdown(ctx); err != nil {
				slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
			}
		}

		s.eb.Stop()

		if s.infra.redis != nil {
			if err := s.infra.redis.Close(); err != nil {
				slog.ErrorContext(ctx, "server: close redis failed", "error", err)
			}
		}

		slog.InfoContext(ctx, "server: shutdown completed")
	})
}
