package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"time"
)

// ============================================================================
// Web Server
// ============================================================================
// Small HTTP surface for the room operator:
//   - GET  /             maintenance page (power off the player box)
//   - GET  /api/status   current engine state snapshot (JSON)
//   - POST /api/command  submit a control event (the same envelopes as IPC)
//   - POST /api/shutdown power the host off (requires confirm=true)
//   - GET  /ws           live state stream (state_ws.go)
// ============================================================================

const maintenancePage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Room Audio</title>
<style>
body { font-family: sans-serif; background: #111; color: #eee; text-align: center; padding-top: 4em; }
button { font-size: 1.4em; padding: 0.8em 2em; border-radius: 8px; border: none; cursor: pointer; }
.off { background: #b33; color: #fff; }
#result { margin-top: 2em; }
</style>
</head>
<body>
<h1>Room Audio Player</h1>
<p>Power off the player box before unplugging it.</p>
<button class="off" onclick="shutdown()">Power off</button>
<div id="result"></div>
<script>
function shutdown() {
  if (!confirm('Really power off the player?')) return;
  fetch('/api/shutdown', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({confirm: true})
  }).then(r => r.json()).then(d => {
    document.getElementById('result').textContent = d.message || d.error || 'done';
  }).catch(e => {
    document.getElementById('result').textContent = 'request failed: ' + e;
  });
}
</script>
</body>
</html>
`

// snapshotTimeout bounds the reducer round-trip for /api/status.
const snapshotTimeout = 1 * time.Second

// newWebMux builds the HTTP routes. The state WS endpoint is registered by
// the caller so hub lifetime stays with main.
func newWebMux(cfg WebConfig, exts mediaExtensions, events chan<- Event, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, maintenancePage)
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		reply := make(chan StateSnapshot, 1)
		select {
		case events <- RequestStateSnapshot{Reply: reply, At: time.Now()}:
		case <-r.Context().Done():
			return
		}

		select {
		case snap := <-reply:
			writeJSON(w, http.StatusOK, snap)
		case <-time.After(snapshotTimeout):
			http.Error(w, "snapshot timeout", http.StatusServiceUnavailable)
		case <-r.Context().Done():
		}
	})

	mux.HandleFunc("/api/command", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		ev, err := UnmarshalEvent(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		if err := validateControlEvent(ev, exts); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		select {
		case events <- ev:
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		case <-r.Context().Done():
		}
	})

	mux.HandleFunc("/api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !cfg.AllowShutdown {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "shutdown disabled"})
			return
		}

		var req struct {
			Confirm bool `json:"confirm"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Confirm {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "confirmation required"})
			return
		}

		logger.Warn("host shutdown requested via web")
		go shutdownHost(logger)
		writeJSON(w, http.StatusOK, map[string]string{"message": "powering off"})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// shutdownHost powers the machine off. The delay lets the HTTP response
// reach the browser first.
func shutdownHost(logger *slog.Logger) {
	time.Sleep(1 * time.Second)
	if err := exec.Command("systemctl", "poweroff").Run(); err != nil {
		logger.Error("poweroff failed", "error", err)
	}
}

// runWebServer starts the HTTP server on the configured port and shuts it
// down gracefully when ctx is canceled.
func runWebServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	listenAddr := fmt.Sprintf(":%d", port)
	logger.Info("web server listening", "port", port)

	srv := &http.Server{
		Addr:    listenAddr,
		Handler: handler,
	}

	errCh := make(chan error, 1)

	go func() {
		// ListenAndServe returns http.ErrServerClosed on Shutdown; treat
		// that as clean exit.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		// Wait for the ListenAndServe goroutine to return.
		<-errCh
		return nil

	case err := <-errCh:
		return err
	}
}
