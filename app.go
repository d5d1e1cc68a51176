package main

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"marquee/auth"
	"marquee/jobs"
	"marquee/lists"
	"marquee/services"
)

// App represents the application with its dependencies
type App struct {
	watched     *lists.WatchedService
	watchlist   *lists.WatchlistService
	tmdbService *services.TMDBService
	auth        *auth.Service
	limiter     *auth.RateLimiter
	jobManager  *jobs.JobManager
}

// Router builds the HTTP routes
func (app *App) Router() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)
	r.Use(requestLogger)
	r.Use(auth.Gate(app.auth, internalErrorHandler))

	// Health check endpoint
	r.HandleFunc("/health", healthHandler).Methods("GET")

	// Authentication
	authRoutes := r.PathPrefix("/auth").Subrouter()
	if app.limiter != nil {
		authRoutes.Use(app.limiter.Middleware(tooManyRequestsHandler))
	}
	authRoutes.HandleFunc("/signup", app.signUpHandler).Methods("POST")
	authRoutes.HandleFunc("/signin", app.signInHandler).Methods("POST")
	authRoutes.HandleFunc("/signout", app.signOutHandler).Methods("POST")
	authRoutes.HandleFunc("/me", app.meHandler).Methods("GET")

	// Watched list
	r.Handle("/watched", requireCaller(app.listWatchedHandler)).Methods("GET")
	r.Handle("/watched", requireCaller(app.createWatchedHandler)).Methods("POST")
	r.Handle("/watched/{id}", requireCaller(app.getWatchedHandler)).Methods("GET")
	r.Handle("/watched/{id}", requireCaller(app.updateWatchedHandler)).Methods("PUT")
	r.Handle("/watched/{id}", requireCaller(app.deleteWatchedHandler)).Methods("DELETE")

	// Watchlist
	r.Handle("/watchlist", requireCaller(app.listWatchlistHandler)).Methods("GET")
	r.Handle("/watchlist", requireCaller(app.createWatchlistHandler)).Methods("POST")
	r.Handle("/watchlist/{id}", requireCaller(app.deleteWatchlistHandler)).Methods("DELETE")

	// Metadata lookups need no caller
	r.HandleFunc("/metadata/search", app.searchHandler).Methods("GET")
	r.HandleFunc("/metadata/movie/{id}", app.movieDetailsHandler).Methods("GET")
	r.HandleFunc("/metadata/tv/{id}", app.tvDetailsHandler).Methods("GET")

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error("Failed to write response", "err", err)
	}
}

func tooManyRequestsHandler(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusTooManyRequests, "Too many requests")
}

func internalErrorHandler(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func methodNotAllowedHandler(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// requireCaller rejects anonymous requests before any input is examined
func requireCaller(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
