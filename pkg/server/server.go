// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package server

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nttcom/bgpls/internal/pkg/cspf"
	"github.com/nttcom/bgpls/internal/pkg/gobgp"
	"github.com/nttcom/bgpls/internal/pkg/metrics"
	"github.com/nttcom/bgpls/internal/pkg/table"
	"github.com/nttcom/bgpls/internal/pkg/transcode"
	"github.com/nttcom/bgpls/pkg/packet/bgpls"
)

var ErrServerClosed = errors.New("server closed")

// RouteSource lists the Link-State routes of an external BGP speaker.
type RouteSource interface {
	ListRoutes(ctx context.Context) ([]gobgp.Route, error)
}

type Options struct {
	Source       RouteSource
	SourceName   string
	SyncInterval time.Duration
	Registerer   prometheus.Registerer
}

// routeKey identifies a route: one NLRI as announced by one peer.
type routeKey struct {
	peer string
	typ  bgpls.NLRIType
	key  bgpls.DescriptorKey
}

// Server owns the LSDB. Every mutation runs on the goroutine executing Run,
// one at a time and to completion.
type Server struct {
	lsdb    *table.LSDB
	decoder *bgpls.Decoder
	routes  map[routeKey]*table.EntryRef
	events  chan func()
	stopped chan struct{}
	opts    Options
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewServer(o *Options, logger *zap.Logger) *Server {
	if o.SourceName == "" {
		o.SourceName = "gobgp"
	}
	if o.Registerer == nil {
		o.Registerer = prometheus.NewRegistry()
	}
	s := &Server{
		lsdb:    table.NewLSDB(),
		routes:  make(map[routeKey]*table.EntryRef),
		events:  make(chan func()),
		stopped: make(chan struct{}),
		opts:    *o,
		metrics: metrics.New(o.Registerer),
		logger:  logger.With(zap.String("server", "bgpls")),
	}
	s.decoder = bgpls.NewDecoder(s.logger)
	s.decoder.OnUnknownTLV = func(bgpls.TLVType) { s.metrics.UnknownTLVs.Inc() }
	return s
}

// LSDB may be read from any goroutine.
func (s *Server) LSDB() *table.LSDB {
	return s.lsdb
}

func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Run processes events until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.stopped)

	if s.opts.Source != nil && s.opts.SyncInterval > 0 {
		go s.syncLoop(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stop event loop", zap.Int("entries", s.lsdb.CountAll()))
			return nil
		case f := <-s.events:
			f()
		}
	}
}

// do runs f on the event loop and waits for it. ctx only bounds the wait
// for the loop to pick f up; once queued, f runs to completion and do
// returns nil.
func (s *Server) do(ctx context.Context, f func()) error {
	done := make(chan struct{})
	select {
	case s.events <- func() { f(); close(done) }:
	case <-s.stopped:
		return ErrServerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Update installs the NLRIs of one MP_REACH_NLRI region together with the
// BGP-LS attribute value that came with them. attr may be nil.
func (s *Server) Update(ctx context.Context, peer string, nlri []byte, attr []byte) (bgpls.Result, error) {
	var res bgpls.Result
	err := s.do(ctx, func() { _, res = s.update(peer, nlri, attr) })
	return res, err
}

// Withdraw removes the routes of one MP_UNREACH_NLRI region.
func (s *Server) Withdraw(ctx context.Context, peer string, nlri []byte) (bgpls.Result, error) {
	var res bgpls.Result
	err := s.do(ctx, func() { res = s.withdraw(peer, nlri) })
	return res, err
}

// AddTELink installs a link learned from an IGP instance.
func (s *Server) AddTELink(ctx context.Context, peer string, link transcode.TELink) error {
	nlri, attr, err := transcode.FromTELink(link)
	if err != nil {
		return err
	}
	return s.do(ctx, func() { s.install(peer, nlri, attr) })
}

// Ted builds the topology from the LSDB content at one point of the event
// loop.
func (s *Server) Ted(ctx context.Context) (*table.LsTed, error) {
	var ted *table.LsTed
	err := s.do(ctx, func() { ted = table.BuildTed(1, s.lsdb) })
	return ted, err
}

func (s *Server) Path(ctx context.Context, src, dst string, asn uint32, metric table.MetricType) (*cspf.Path, error) {
	ted, err := s.Ted(ctx)
	if err != nil {
		return nil, err
	}
	return cspf.Cspf(src, dst, asn, metric, ted)
}

func (s *Server) observe(res bgpls.Result, what string, peer string) {
	s.metrics.ObserveResult(res)
	switch res.Status {
	case bgpls.StatusRecoverablePartial:
		for _, w := range res.Warnings {
			s.logger.Debug("decode warning", zap.String("peer", peer), zap.String("part", what), zap.Error(w))
		}
	case bgpls.StatusFatal:
		s.logger.Info("decode error", zap.String("peer", peer), zap.String("part", what), zap.Error(res.Err))
	}
}

// mergeResults keeps the worst status and every warning.
func mergeResults(a, b bgpls.Result) bgpls.Result {
	out := bgpls.Result{Status: max(a.Status, b.Status), Warnings: append(a.Warnings, b.Warnings...)}
	if a.Err != nil {
		out.Err = a.Err
	} else {
		out.Err = b.Err
	}
	return out
}

func (s *Server) update(peer string, rawNLRI, rawAttr []byte) ([]routeKey, bgpls.Result) {
	nlris, res := s.decoder.DecodeNLRIs(rawNLRI)
	s.observe(res, "nlri", peer)
	if res.Status == bgpls.StatusFatal {
		return nil, res
	}

	// the attribute shape depends on the NLRI type; decode it once per type
	// and install nothing if any of them is fatal
	attrs := make(map[bgpls.NLRIType]bgpls.LinkStateAttribute)
	if rawAttr != nil {
		for _, n := range nlris {
			if _, ok := attrs[n.Type()]; ok {
				continue
			}
			attr, ares := s.decoder.DecodeAttribute(rawAttr, n.Type())
			s.observe(ares, "attribute", peer)
			res = mergeResults(res, ares)
			if ares.Status == bgpls.StatusFatal {
				return nil, res
			}
			attrs[n.Type()] = attr
		}
	}

	keys := make([]routeKey, 0, len(nlris))
	for _, n := range nlris {
		keys = append(keys, s.install(peer, n, attrs[n.Type()]))
	}
	s.metrics.ObserveLSDB(s.lsdb)
	return keys, res
}

func (s *Server) install(peer string, n bgpls.NLRI, attr bgpls.LinkStateAttribute) routeKey {
	k := routeKey{peer: peer, typ: n.Type(), key: n.Key()}
	if _, ok := s.routes[k]; ok {
		s.lsdb.Add(n, attr)
		s.logger.Debug("replace link-state attribute", zap.String("peer", peer), zap.Object("nlri", n))
		return k
	}

	_, err := s.lsdb.Lookup(k.typ, k.key)
	ref := s.lsdb.Add(n, attr)
	if err == nil {
		if err := s.lsdb.Acquire(ref); err != nil {
			s.logger.Warn("acquire link-state entry", zap.String("peer", peer), zap.Error(err))
		}
	}
	s.routes[k] = ref
	s.logger.Debug("install link-state route", zap.String("peer", peer), zap.Object("nlri", n),
		zap.Uint32("refcount", ref.RefCount()))
	return k
}

func (s *Server) withdraw(peer string, rawNLRI []byte) bgpls.Result {
	nlris, res := s.decoder.DecodeNLRIs(rawNLRI)
	s.observe(res, "nlri", peer)
	if res.Status == bgpls.StatusFatal {
		return res
	}
	for _, n := range nlris {
		s.release(routeKey{peer: peer, typ: n.Type(), key: n.Key()})
	}
	s.metrics.ObserveLSDB(s.lsdb)
	return res
}

func (s *Server) release(k routeKey) {
	ref, ok := s.routes[k]
	if !ok {
		s.logger.Debug("withdraw of unknown route", zap.String("peer", k.peer), zap.Stringer("nlriType", k.typ))
		return
	}
	delete(s.routes, k)
	if err := s.lsdb.Release(ref); err != nil {
		s.logger.Debug("release link-state entry", zap.String("peer", k.peer), zap.Error(err))
	}
}

// sync makes the routes of peer match routes: routes of peer missing from
// the list are withdrawn.
func (s *Server) sync(peer string, routes []gobgp.Route) {
	seen := make(map[routeKey]bool)
	for _, r := range routes {
		if r.Withdraw {
			continue
		}
		keys, _ := s.update(peer, r.NLRI, r.Attribute)
		for _, k := range keys {
			seen[k] = true
		}
	}
	var stale int
	for k := range s.routes {
		if k.peer == peer && !seen[k] {
			s.release(k)
			stale++
		}
	}
	s.metrics.ObserveLSDB(s.lsdb)
	s.logger.Info("synchronized link-state routes", zap.String("peer", peer),
		zap.Int("routes", len(seen)), zap.Int("withdrawn", stale), zap.Int("entries", s.lsdb.CountAll()))
}
