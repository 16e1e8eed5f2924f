package main

import (
	"log/slog"
	"net/http"
	_ "net/http/pprof"
)

func enablePPROF(addr string, logger *slog.Logger) {
	go func() {
		logger.Info("pprof enabled", "url", "http://"+addr+"/debug/pprof/")
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Warn("pprof stopped", "error", err)
		}
	}()
}
