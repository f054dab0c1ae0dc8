// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/nttcom/bgpls/internal/config"
	"github.com/nttcom/bgpls/internal/pkg/gobgp"
	"github.com/nttcom/bgpls/internal/pkg/metrics"
	"github.com/nttcom/bgpls/internal/pkg/version"
	"github.com/nttcom/bgpls/pkg/logger"
	"github.com/nttcom/bgpls/pkg/server"
)

type Flags struct {
	ConfigFile string
}

func main() {
	f := new(Flags)
	flag.StringVar(&f.ConfigFile, "f", "bgplsd.yaml", "Specify a configuration file")
	flag.Parse()

	c, err := config.ReadConfigFile(f.ConfigFile)
	if err != nil {
		log.Panic(err)
	}
	w, err := logger.NewRotateWriter(c.Global.Log.Path, c.Global.Log.Name, c.Global.Log.MaxAge, c.Global.Log.RotationTime)
	if err != nil {
		log.Panic(err)
	}
	defer w.Close()

	logger := logger.LogInit(w, c.Global.Log.Debug)
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	o := &server.Options{
		SyncInterval: c.Global.Gobgp.Interval,
		Registerer:   reg,
	}
	if c.Global.Gobgp.Address != "" {
		client, err := gobgp.NewClient(c.Global.Gobgp.Address, c.Global.Gobgp.Port)
		if err != nil {
			logger.Panic("Failed to create gobgp client", zap.Error(err))
		}
		defer client.Close()
		o.Source = client
	}

	s := server.NewServer(o, logger)
	s.Metrics().BuildInfo.WithLabelValues(version.Version()).Set(1)

	if c.Global.Metrics.Address != "" {
		addr := net.JoinHostPort(c.Global.Metrics.Address, c.Global.Metrics.Port)
		go func() {
			if err := metrics.Serve(ctx, addr, reg, logger); err != nil {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	go func() {
		for _, link := range c.TELinks {
			if err := s.AddTELink(ctx, "static", link); err != nil {
				logger.Warn("skip static TE link", zap.String("local", link.LocalRouterID),
					zap.String("remote", link.RemoteRouterID), zap.Error(err))
			}
		}
	}()

	logger.Info("bgplsd started", zap.String("version", version.Version()))
	if err := s.Run(ctx); err != nil {
		logger.Panic("Failed to run server", zap.Error(err))
	}
}
