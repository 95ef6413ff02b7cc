package net

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"arena/server/internal/hub"
	"arena/server/internal/net/ws"
	"arena/server/internal/telemetry"
)

type HTTPHandlerConfig struct {
	Logger   telemetry.Logger
	Counters *telemetry.Counters
	TickRate int
}

// NewHTTPHandler serves the websocket endpoint plus health and diagnostics.
func NewHTTPHandler(h *hub.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		var counters map[string]uint64
		if cfg.Counters != nil {
			counters = cfg.Counters.Snapshot()
		}
		payload := struct {
			Status     string            `json:"status"`
			ServerTime int64             `json:"serverTime"`
			Tick       uint64            `json:"tick"`
			TickRate   int               `json:"tickRate"`
			Sessions   []hub.SessionInfo `json:"sessions"`
			Telemetry  map[string]uint64 `json:"telemetry"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Tick:       h.Tick(),
			TickRate:   cfg.TickRate,
			Sessions:   h.Sessions(),
			Telemetry:  counters,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	handler := ws.NewHandler(h, ws.HandlerConfig{Logger: cfg.Logger})
	mux.HandleFunc("/ws", handler.Handle)

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
