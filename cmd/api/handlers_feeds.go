package main

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/feeds"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/filters"
)

// User names may be full "Name (nickname)" strings or email addresses. The
// feed is the only place where they leave the API unasked, so they are
// scrubbed down to the nickname or the mailbox part.
var authorRX = regexp.MustCompile(`.*\((.*)\)|(.*)@.*`)

func scrubAuthor(name string) string {
	return authorRX.ReplaceAllString(name, "$1$2")
}

// Emit the photo listing of a gallery as an RSS or Atom feed, newest photos
// first. Vote counts appear in the item description only when the gallery
// stats are visible to the caller.
func (app *application) galleryFeedHandler(w http.ResponseWriter, r *http.Request) {
	name, err := readUrlParam(r, "gallery")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}
	format := readString(r.URL.Query(), "format", "rss")

	gallery, err := app.galleries.Get(r.Context(), name, true, filters.Input{
		Sort: filters.SortByDate,
	})
	if err != nil {
		app.encodeError(w, r, err)
		return
	}

	baseURL := fmt.Sprintf("https://%s/v1/galleries/%s", app.config.PublicHostname, gallery.Name)
	feed := &feeds.Feed{
		Title:       gallery.Name,
		Link:        &feeds.Link{Href: baseURL},
		Description: fmt.Sprintf("Photos of the %s gallery", gallery.Name),
		Updated:     gallery.LastWrite,
	}

	for _, photo := range gallery.Photos {
		description := ""
		if photo.User != "" {
			description = fmt.Sprintf("Uploaded by %s.", scrubAuthor(photo.User))
		}
		if photo.VoteCount > 0 {
			description += fmt.Sprintf(" Votes: %d.", photo.VoteCount)
		}

		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("%s/images/%s", baseURL, photo.Name),
			Title:       photo.Title,
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/images/%s/file", baseURL, photo.Name)},
			Description: description,
			Created:     photo.LastWrite,
		})
	}

	var body, contentType string
	switch format {
	case "atom":
		body, err = feed.ToAtom()
		contentType = "application/atom+xml"
	default:
		body, err = feed.ToRss()
		contentType = "application/rss+xml"
	}
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.streamBytes(w, r, strings.NewReader(body), http.Header{
		"Content-Type": []string{contentType},
	})
}
