package main

import (
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const statsviewAddr = "localhost:12600"

// launchStatsview serves Go runtime charts (heap, GC, goroutines) in the
// background for profiling the frame loop.
func launchStatsview(logger *slog.Logger) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(statsviewAddr))
		mgr := statsview.New()
		mgr.Start() //nolint:errcheck // serves until the process exits
	}()
	logger.Info("stats server available", "url", "http://"+statsviewAddr+"/debug/statsview")
}
