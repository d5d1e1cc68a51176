package main

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"marquee/models"
)

func (app *App) searchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	kind := models.MediaType(r.URL.Query().Get("type"))
	if query == "" || !kind.Valid() {
		writeError(w, http.StatusBadRequest,
			"Missing or invalid query parameters: q (search term) and type (movie or tv) are required")
		return
	}

	results, err := app.tmdbService.SearchByTitle(r.Context(), kind, query)
	if err != nil {
		log.Error("TMDB search failed", "err", err, "type", kind)
		writeError(w, http.StatusInternalServerError, "Failed to perform search. Please try again later.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (app *App) movieDetailsHandler(w http.ResponseWriter, r *http.Request) {
	app.detailsHandler(w, r, models.MediaTypeMovie, "Invalid movie ID", "Failed to fetch movie details")
}

func (app *App) tvDetailsHandler(w http.ResponseWriter, r *http.Request) {
	app.detailsHandler(w, r, models.MediaTypeTV, "Invalid TV show ID", "Failed to fetch TV show details")
}

func (app *App) detailsHandler(w http.ResponseWriter, r *http.Request, kind models.MediaType, invalidMsg, failedMsg string) {
	id, ok := parseID(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusBadRequest, invalidMsg)
		return
	}

	detail, err := app.tmdbService.GetByID(r.Context(), kind, id)
	if err != nil {
		log.Error("Error fetching details from TMDB", "err", err, "type", kind, "id", id)
		writeError(w, http.StatusInternalServerError, failedMsg)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
