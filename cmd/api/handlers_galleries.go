package main

import (
	"net/http"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/filters"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// This file contains application methods which signatures match the
// http.HandlerFunc so they can be registered as endpoints to our router.
// These methods act as wrappers around the 'core' services of the
// application. They are used to decouple transport dependent logic and
// issues from the business logic present in the services.

func (app *application) listGalleriesHandler(w http.ResponseWriter, r *http.Request) {
	top := readInt(r.URL.Query(), "top", 0)

	galleries, err := app.galleries.List(r.Context(), top)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusOK, env{"galleries": galleries}, nil)
}

func (app *application) getGalleryHandler(w http.ResponseWriter, r *http.Request) {
	name, err := readUrlParam(r, "gallery")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	queryString := r.URL.Query()
	details := readBool(queryString, "details", true)
	filter := filters.Input{
		Filter: filters.ParseFilter(readString(queryString, "filter", "")),
		Sort:   filters.ParseSort(readString(queryString, "sort", "")),
	}

	gallery, err := app.galleries.Get(r.Context(), name, details, filter)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusOK, env{"gallery": gallery}, nil)
}

func (app *application) createGalleryHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}

	err := readJSON(w, r, &input)
	if err != nil {
		app.malformedJSONResponse(w, r, err)
		return
	}

	gallery, err := app.galleries.Create(r.Context(), input.Name)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusCreated, env{"gallery": gallery}, nil)
}

func (app *application) deleteGalleryHandler(w http.ResponseWriter, r *http.Request) {
	name, err := readUrlParam(r, "gallery")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.galleries.Remove(r.Context(), name)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusOK, env{"deleted_gallery": name}, nil)
}

func (app *application) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	name, err := readUrlParam(r, "gallery")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	setting, err := app.galleries.Settings(r.Context(), name)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusOK, env{"settings": setting}, nil)
}

func (app *application) saveSettingsHandler(w http.ResponseWriter, r *http.Request) {
	name, err := readUrlParam(r, "gallery")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input struct {
		VotingEnabled bool `json:"voting_enabled"`
		UploadEnabled bool `json:"upload_enabled"`
		StatsEnabled  bool `json:"stats_enabled"`
	}
	err = readJSON(w, r, &input)
	if err != nil {
		app.malformedJSONResponse(w, r, err)
		return
	}

	setting, err := app.galleries.SaveSettings(r.Context(), name, store.Setting{
		Gallery:       name,
		VotingEnabled: input.VotingEnabled,
		UploadEnabled: input.UploadEnabled,
		StatsEnabled:  input.StatsEnabled,
	})
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusOK, env{"settings": setting}, nil)
}

// Flip a single feature of a gallery, identified by the URL. Convenient for
// admin panels that expose one switch per feature.
func (app *application) toggleSettingHandler(w http.ResponseWriter, r *http.Request) {
	name, err := readUrlParam(r, "gallery")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}
	feature, err := readUrlParam(r, "feature")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	setting, err := app.galleries.Settings(r.Context(), name)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	switch feature {
	case "voting":
		setting.VotingEnabled = !setting.VotingEnabled
	case "uploading":
		setting.UploadEnabled = !setting.UploadEnabled
	case "stats":
		setting.StatsEnabled = !setting.StatsEnabled
	default:
		app.notFoundResponse(w, r)
		return
	}

	setting, err = app.galleries.SaveSettings(r.Context(), name, setting)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusOK, env{"settings": setting}, nil)
}

func (app *application) lastChangeHandler(w http.ResponseWriter, r *http.Request) {
	name := readString(r.URL.Query(), "gallery", "")

	lastChange, err := app.galleries.LastChange(r.Context(), name)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusOK, env{"last_change": lastChange}, nil)
}
