package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Webhook    *WebhookHandler
	Watch      *WatchHandler
	Health     http.HandlerFunc
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Webhook != nil {
		mux.HandleFunc("/calendar/webhook", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Webhook.Receive(w, r)
		})
	}

	if cfg.Watch != nil {
		mux.HandleFunc("/calendar/watch", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Watch.Create(w, r)
		})
		mux.HandleFunc("/calendar/watch/", func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimPrefix(r.URL.Path, "/calendar/watch/")
			if userID == "" || strings.Contains(userID, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			r = r.WithContext(ContextWithUserID(r.Context(), userID))
			cfg.Watch.Delete(w, r)
		})
		mux.HandleFunc("/calendar/sync/status/", func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimPrefix(r.URL.Path, "/calendar/sync/status/")
			if userID == "" || strings.Contains(userID, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			r = r.WithContext(ContextWithUserID(r.Context(), userID))
			cfg.Watch.SyncStatus(w, r)
		})
	}

	health := cfg.Health
	if health == nil {
		health = defaultHealth
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		health(w, r)
	})

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if mw := cfg.Middleware[i]; mw != nil {
			handler = mw(handler)
		}
	}
	return handler
}

func defaultHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
