package server

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Server wraps http.Server with logged startup and graceful shutdown.
type Server struct {
	http.Server
	Logger *logrus.Logger
}

func (s *Server) ListenAndServe() error {
	s.Logger.WithField("addr", s.Addr).Info("http server is listening")

	if err := s.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.Logger.WithError(err).Error()
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("http server is shutting down")

	if err := s.Server.Shutdown(ctx); err != nil {
		s.Logger.WithContext(ctx).WithError(err).Error()
		return err
	}

	return nil
}
