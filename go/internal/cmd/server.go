package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ysatyam-3107/studentsync/go/internal/rooms"
)

func setupServer(config *Config, services *Services) *http.Server {
	mux := http.NewServeMux()
	registerServices(mux, services)
	setupHealthCheck(mux)

	// Connect clients in browsers need the protocol headers allowed
	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{
			"Authorization",
			"Content-Type",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
		},
		ExposedHeaders: []string{"Grpc-Status", "Grpc-Message"},
		MaxAge:         int((2 * time.Hour).Seconds()),
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Port),
		Handler:           h2c.NewHandler(logRequests(c.Handler(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	path, handler := rooms.NewRoomServiceHandler(services.Rooms)
	mux.Handle(path, handler)

	services.Gateway.RegisterRoutes(mux)
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

// logRequests logs each request at debug level. The writer is passed through
// untouched so WebSocket upgrades can still hijack it.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}
