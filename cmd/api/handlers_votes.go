package main

import (
	"net/http"

	"github.com/b0b7h3d0g/PhotoVoter/services/votes"
)

func (app *application) voteHandler(w http.ResponseWriter, r *http.Request) {
	gallery, err := readUrlParam(r, "gallery")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}
	image, err := readUrlParam(r, "image")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	// The default is a toggle: the caller doesn't need to know the current
	// state of its vote. Explicit modes make the request idempotent.
	var mode votes.Mode
	switch readString(r.URL.Query(), "mode", "toggle") {
	case "like":
		mode = votes.ModeLike
	case "unlike":
		mode = votes.ModeUnlike
	default:
		mode = votes.ModeToggle
	}

	photo, err := app.votes.Vote(r.Context(), gallery, image, mode)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusOK, env{"image": photo}, nil)
}

func (app *application) voteStateHandler(w http.ResponseWriter, r *http.Request) {
	gallery, err := readUrlParam(r, "gallery")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}
	image, err := readUrlParam(r, "image")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	photo, err := app.votes.State(r.Context(), gallery, image)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusOK, env{"image": photo}, nil)
}
