// README: API server; owns the net/http server wrapping the gin router.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"ridebud/internal/http/handlers"
	"ridebud/internal/infra"
	"ridebud/internal/modules/pricing"
)

type ServerDeps struct {
	Journeys handlers.JourneyService
	Rides    handlers.RideReader
	Browser  handlers.RideBrowser
	Pricing  *pricing.Service
	Verifier infra.TokenVerifier
	Log      logrus.FieldLogger
	Location *time.Location
}

type Server struct {
	srv *http.Server
	log logrus.FieldLogger
}

func NewServer(addr string, deps ServerDeps) *Server {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: deps.Log,
	}
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.log.WithField("addr", s.srv.Addr).Info("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
