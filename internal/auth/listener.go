package auth

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/teemow/mcp-calendar/internal/errs"
	"github.com/teemow/mcp-calendar/internal/instrumentation"
	"github.com/teemow/mcp-calendar/internal/logging"
)

//go:embed success.html
var successPage []byte

const listenerShutdownTimeout = 5 * time.Second

// callbackResult settles a pending authorization.
type callbackResult struct {
	code   string
	err    error
	denied bool
}

// callbackListener is the temporary HTTP server at the redirect address.
type callbackListener struct {
	srv   *http.Server
	ln    net.Listener
	state string

	result  chan callbackResult
	settled sync.Once

	// done is closed on shutdown and releases requests held open.
	done      chan struct{}
	closeOnce sync.Once
	closed    chan struct{}

	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

func newCallbackListener(addr, state string, metrics *instrumentation.Metrics, logger *slog.Logger) (*callbackListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errs.Wrap(errs.Authorization, fmt.Sprintf("failed to listen on %s: %v", addr, err), err)
	}

	l := &callbackListener{
		ln:      ln,
		state:   state,
		result:  make(chan callbackResult, 1),
		done:    make(chan struct{}),
		closed:  make(chan struct{}),
		metrics: metrics,
		logger:  logger,
	}
	l.srv = &http.Server{
		Handler:           l.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return l, nil
}

func (l *callbackListener) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(l.recordRequest)
	r.Use(l.recoverer)
	r.HandleFunc("/*", l.handleCallback)
	return r
}

// serve runs until shutdown. Accept errors other than a closed server
// settle the flow.
func (l *callbackListener) serve() {
	l.logger.Info("authorization listener started", slog.String(logging.KeyAddr, l.ln.Addr().String()))
	if err := l.srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.settle(callbackResult{err: errs.Wrap(errs.Authorization, fmt.Sprintf("authorization listener failed: %v", err), err)})
	}
}

// settle records the outcome. Only the first call has an effect.
func (l *callbackListener) settle(res callbackResult) bool {
	first := false
	l.settled.Do(func() {
		first = true
		l.result <- res
	})
	return first
}

// shutdown releases held requests and stops the server. Safe to call more than once.
func (l *callbackListener) shutdown() {
	l.closeOnce.Do(func() {
		close(l.done)
		ctx, cancel := context.WithTimeout(context.Background(), listenerShutdownTimeout)
		defer cancel()
		if err := l.srv.Shutdown(ctx); err != nil {
			l.logger.Debug("authorization listener shutdown", logging.Err(err))
		}
		_ = l.ln.Close()
		close(l.closed)
		l.logger.Debug("authorization listener stopped")
	})
}

// shutdownAfter stops the listener once delay has passed.
func (l *callbackListener) shutdownAfter(delay time.Duration) {
	go func() {
		select {
		case <-time.After(delay):
		case <-l.done:
		}
		l.shutdown()
	}()
}

func (l *callbackListener) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if reason := q.Get("error"); reason != "" {
		msg := "authorization denied: " + reason
		if desc := q.Get("error_description"); desc != "" {
			msg += " (" + desc + ")"
		}
		l.settle(callbackResult{err: errs.New(errs.Authorization, msg), denied: true})
		http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		select {
		case <-l.done:
		case <-r.Context().Done():
		}
		return
	}

	if state := q.Get("state"); state != "" && state != l.state {
		l.logger.Warn("ignoring callback with unexpected state")
		http.Error(w, "Invalid state parameter.", http.StatusBadRequest)
		return
	}

	if !l.settle(callbackResult{code: code}) {
		l.logger.Debug("authorization already settled, ignoring code")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(successPage)
}

// recoverer turns a handler panic into a rejected flow.
func (l *callbackListener) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := errs.New(errs.Authorization, fmt.Sprintf("error handling authorization callback: %v", rec))
				l.logger.Error("authorization callback panicked", logging.Err(err))
				l.settle(callbackResult{err: err})
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (l *callbackListener) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l.metrics.RecordHTTPRequest(r.Context(), r.Method, "/", status, time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}
