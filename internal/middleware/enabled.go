package middleware

import (
	"net/http"
	"sync/atomic"
)

// EnabledFlag holds the runtime on/off state toggled by the management API.
type EnabledFlag struct {
	enabled atomic.Bool
}

func NewEnabledFlag(initial bool) *EnabledFlag {
	f := &EnabledFlag{}
	f.enabled.Store(initial)
	return f
}

func (f *EnabledFlag) Set(enabled bool) { f.enabled.Store(enabled) }
func (f *EnabledFlag) Get() bool        { return f.enabled.Load() }

// EnabledGate rejects requests with 503 while the service is disabled.
// With bypass set the gate is inert (local development, tests).
func EnabledGate(flag *EnabledFlag, bypass bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !bypass && !flag.Get() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"service is disabled, enable it to use it"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
