package http

import (
	"fmt"
	"net/http"
	"time"
)

type ServerConfig struct {
	Port int
	// RateLimitRPS of zero disables the per-client limiter.
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewServer(config ServerConfig, h *BookHandler) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", ping)
	mux.HandleFunc("/ready", h.ready)
	mux.HandleFunc("/books", h.books)
	mux.HandleFunc("/books/", h.bookByISBN)

	var handler http.Handler = mux
	if config.RateLimitRPS > 0 {
		handler = NewRateLimitMiddleware(config.RateLimitRPS, config.RateLimitBurst).Middleware(handler)
	}
	handler = Chain(handler, RequestIDMiddleware, AccessLogMiddleware, RecoveryMiddleware)

	server := http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &server
}

/* Tests the http server connection.  */
func ping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
