// Copyright 2015 Prometheus Team
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/promslog"
	promslogflag "github.com/prometheus/common/promslog/flag"

	"github.com/Goxoy/goxoy-litep2p/config"
	"github.com/Goxoy/goxoy-litep2p/node"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFile  = kingpin.Flag("config.file", "litep2p node configuration file.").Default("").String()
		metricsAddr = kingpin.Flag("web.listen-address", "Address to expose /metrics on. Empty disables it.").Default("").String()
	)

	promslogConfig := &promslog.Config{}
	promslogflag.AddFlags(kingpin.CommandLine, promslogConfig)
	kingpin.Version(version())
	kingpin.CommandLine.UsageWriter(os.Stdout)
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := promslog.New(promslogConfig)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("loading configuration failed", "err", err)
		return 1
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	n := node.New(cfg, logger)
	if err := n.Start(); err != nil {
		logger.Error("starting node failed", "err", err)
		return 9
	}
	logger.Info("node started", "addr", cfg.Addr, "bootstrap", cfg.Bootstrap)

	if cfg.MetricsAddr != "" {
		n.RegisterMetrics()
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go eventLoop(ctx, n, logger)

	<-ctx.Done()
	logger.Info("shutting down")
	n.Stop()
	return 0
}

func eventLoop(ctx context.Context, n *node.Node, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := n.OnEvent()
		switch ev.Kind {
		case node.OnNodeStatusChanged:
			logStatusChange(logger, ev.Addr, ev.Status.String())
		case node.OnNodesSynced:
			logger.Info(color.GreenString("cluster synced"), "hash", ev.Hash)
		case node.OnMessage:
			logger.Info("message received", "sender", ev.Message.Sender, "bytes", len(ev.Message.Payload))
		case node.OnWait:
		}
	}
}

func logStatusChange(logger *slog.Logger, addr, status string) {
	switch status {
	case "Online":
		logger.Info(color.GreenString("peer online"), "addr", addr)
	case "Offline":
		logger.Warn(color.RedString("peer offline"), "addr", addr)
	default:
		logger.Info("peer status changed", "addr", addr, "status", status)
	}
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", "err", err)
	}
}

func version() string {
	return "litep2p-node (devel)"
}
