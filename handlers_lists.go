package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"marquee/auth"
	"marquee/lists"
	"marquee/models"
)

func (app *App) listWatchedHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.WatchedFilter{
		Search:   q.Get("search"),
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
	}

	items, err := app.watched.List(r.Context(), auth.UserID(r.Context()), filter)
	if err != nil {
		writeListError(w, r, err, "Failed to fetch watched items")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (app *App) createWatchedHandler(w http.ResponseWriter, r *http.Request) {
	var in lists.WatchedInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := app.watched.Create(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		writeListError(w, r, err, "Failed to add watched item")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": item})
}

func (app *App) getWatchedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	item, err := app.watched.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		writeListError(w, r, err, "Failed to fetch watched item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

func (app *App) updateWatchedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	var patch lists.WatchedPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := app.watched.Update(r.Context(), auth.UserID(r.Context()), id, patch)
	if err != nil {
		writeListError(w, r, err, "Failed to update watched item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

func (app *App) deleteWatchedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	if err := app.watched.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		writeListError(w, r, err, "Failed to delete watched item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (app *App) listWatchlistHandler(w http.ResponseWriter, r *http.Request) {
	items, err := app.watchlist.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeListError(w, r, err, "Failed to fetch watchlist items")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (app *App) createWatchlistHandler(w http.ResponseWriter, r *http.Request) {
	var in lists.WatchlistInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := app.watchlist.Create(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		writeListError(w, r, err, "Failed to add watchlist item")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": item})
}

func (app *App) deleteWatchlistHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	if err := app.watchlist.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		writeListError(w, r, err, "Failed to delete watchlist item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
