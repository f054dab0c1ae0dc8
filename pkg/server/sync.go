// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package server

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func (s *Server) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SyncInterval)
	defer ticker.Stop()

	if err := s.SyncOnce(ctx); err != nil {
		s.logger.Info("gobgp sync error", zap.String("source", s.opts.SourceName), zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.Info("gobgp sync error", zap.String("source", s.opts.SourceName), zap.Error(err))
			}
		}
	}
}

// SyncOnce fetches the full route list from the source and replaces the
// routes previously learned from it. The fetch runs outside the event loop.
func (s *Server) SyncOnce(ctx context.Context) error {
	routes, err := s.opts.Source.ListRoutes(ctx)
	s.metrics.ObserveSync(err)
	if err != nil {
		return err
	}
	return s.do(ctx, func() { s.sync(s.opts.SourceName, routes) })
}
