package main

import (
	"net/http"
)

const maxUploadBytes = 1024 * 1024 * 50

func (app *application) getImageHandler(w http.ResponseWriter, r *http.Request) {
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

	photo, err := app.images.Get(r.Context(), gallery, image)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusOK, env{"image": photo}, nil)
}

func (app *application) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
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

	reader := http.MaxBytesReader(w, r.Body, maxUploadBytes)

	photo, err := app.images.Upload(r.Context(), gallery, image, reader)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusCreated, env{"image": photo}, nil)
}

func (app *application) deleteImageHandler(w http.ResponseWriter, r *http.Request) {
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

	err = app.images.Delete(r.Context(), gallery, image)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.sendJSON(w, r, http.StatusOK, env{"deleted_image": image}, nil)
}

// Serve the bytes of an image file. Conditional and range requests are
// handled by the standard library file server.
func (app *application) downloadImageHandler(w http.ResponseWriter, r *http.Request) {
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

	file, err := app.store.Files.GetImage(gallery, image)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.serveFile(w, r, file.Path)
}

func (app *application) thumbnailHandler(w http.ResponseWriter, r *http.Request) {
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

	queryString := r.URL.Query()
	width := readInt(queryString, "width", app.config.Uploads.ThumbWidth)
	height := readInt(queryString, "height", app.config.Uploads.ThumbHeight)

	thumb, err := app.images.Thumbnail(r.Context(), gallery, image, width, height)
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	app.serveFile(w, r, thumb.Path)
}
