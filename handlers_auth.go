package main

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"marquee/auth"
)

func (app *App) signUpHandler(w http.ResponseWriter, r *http.Request) {
	var in auth.SignUpInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := app.auth.SignUp(r.Context(), in)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error("Error creating user", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    user,
	})
}

func (app *App) signInHandler(w http.ResponseWriter, r *http.Request) {
	var in auth.SignInInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, user, err := app.auth.SignIn(r.Context(), in)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		log.Error("Error signing in", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   session.Token,
		"expires": session.ExpiresAt,
		"user":    user,
	})
}

func (app *App) signOutHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.auth.SignOut(r.Context(), auth.TokenFromRequest(r)); err != nil {
		log.Error("Error signing out", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (app *App) meHandler(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
