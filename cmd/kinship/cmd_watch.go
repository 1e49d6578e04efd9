package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dan-solli/kinship/pkg/graph"
	"github.com/dan-solli/kinship/pkg/kinship"
	"github.com/dan-solli/kinship/pkg/live"
	"github.com/dan-solli/kinship/pkg/metrics"
)

func newWatchCmd(a *app) *cobra.Command {
	var familyID, metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Load a family tree and re-layout on every live update",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config.Config
			if familyID == "" {
				familyID = cfg.FamilyID
			}
			if familyID == "" {
				return fmt.Errorf("--family is required")
			}
			if cfg.LiveURL == "" {
				return fmt.Errorf("live_url is required for watch")
			}
			if metricsAddr != "" {
				cfg.MetricsEnabled = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cfg, familyID, metricsAddr, cmd.OutOrStdout(), a.logger)
		},
	}

	cmd.Flags().StringVar(&familyID, "family", "", "family to load (default: family_id from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

func runWatch(ctx context.Context, cfg kinship.Config, familyID, metricsAddr string, out io.Writer, logger *slog.Logger) error {
	tree, err := kinship.New(cfg)
	if err != nil {
		return err
	}
	defer tree.Close()
	tree.WithLogger(logger)

	if metricsAddr != "" {
		srv, err := serveMetrics(tree, metricsAddr, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	v := &viewer{tree: tree, out: out}
	if ok, err := tree.Restore(ctx, familyID); err != nil {
		logger.Warn("cached snapshot unavailable", "family", familyID, "error", err)
	} else if ok {
		v.render("cached")
	}

	if _, err := tree.Load(ctx, familyID); err != nil {
		return fmt.Errorf("failed to load family %s: %w", familyID, err)
	}
	v.render("loaded")

	sub := live.NewSubscriber(cfg.LiveURL, cfg.APIToken, logger)
	logger.Info("watching for live updates", "family", familyID, "client_id", sub.ClientID())
	return sub.Run(ctx, v)
}

func serveMetrics(tree *kinship.Tree, addr string, logger *slog.Logger) (*http.Server, error) {
	collector, ok := tree.Metrics().(*metrics.MetricsCollector)
	if !ok {
		return nil, fmt.Errorf("metrics are disabled")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv, nil
}

// viewer applies live events to the tree and prints a fresh layout summary
// after each one.
type viewer struct {
	tree *kinship.Tree
	out  io.Writer
}

func (v *viewer) HandleAdd(ctx context.Context, ev live.AddEvent) error {
	before := v.tree.Graph()
	if err := v.tree.HandleAdd(ctx, ev); err != nil {
		return err
	}
	if v.tree.Graph() != before {
		v.render("added " + ev.OriginID)
	}
	return nil
}

func (v *viewer) HandleRemove(ctx context.Context, ev live.RemoveEvent) error {
	before := v.tree.Graph()
	if err := v.tree.HandleRemove(ctx, ev); err != nil {
		return err
	}
	if v.tree.Graph() != before {
		v.render("removed " + ev.RemovedID)
	}
	return nil
}

func (v *viewer) render(reason string) {
	res, err := v.tree.Layout()
	if err != nil {
		fmt.Fprintf(v.out, "%s  %s: layout failed: %v\n", time.Now().Format(time.TimeOnly), reason, err)
		return
	}
	g := v.tree.Graph()
	fmt.Fprintf(v.out, "%s  %s: %d people, %d columns, %d expandable, %d unresolved\n",
		time.Now().Format(time.TimeOnly), reason,
		len(res.Placements), res.Columns, countExpandable(g), len(g.Unresolved()))
}

func countExpandable(g *graph.Graph) int {
	n := 0
	for _, p := range g.Nodes() {
		if p.Metadata.Expandable.Any() {
			n++
		}
	}
	return n
}

var _ live.Handler = (*viewer)(nil)
