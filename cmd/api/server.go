package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/mailer"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
	"github.com/b0b7h3d0g/PhotoVoter/services/galleries"
	"github.com/b0b7h3d0g/PhotoVoter/services/images"
	"github.com/b0b7h3d0g/PhotoVoter/services/votes"
)

type application struct {
	votes     votes.Service
	images    images.Service
	galleries galleries.Service
	auth      *auth.Authenticator
	mailer    mailer.Mailer
	store     store.Store
	logger    *zap.SugaredLogger
	bgTasks   sync.WaitGroup
	config    config
}

func (app *application) handler() http.Handler {
	router := mux.NewRouter()

	router.Methods(http.MethodGet).Path("/v1/galleries").HandlerFunc(app.listGalleriesHandler)
	router.Methods(http.MethodPost).Path("/v1/galleries").HandlerFunc(app.createGalleryHandler)
	router.Methods(http.MethodGet).Path("/v1/galleries/{gallery}").HandlerFunc(app.galleryCache(app.getGalleryHandler))
	router.Methods(http.MethodDelete).Path("/v1/galleries/{gallery}").HandlerFunc(app.deleteGalleryHandler)
	router.Methods(http.MethodGet).Path("/v1/galleries/{gallery}/feed").HandlerFunc(app.galleryCache(app.galleryFeedHandler))

	router.Methods(http.MethodGet).Path("/v1/galleries/{gallery}/settings").HandlerFunc(app.getSettingsHandler)
	router.Methods(http.MethodPut).Path("/v1/galleries/{gallery}/settings").HandlerFunc(app.saveSettingsHandler)
	router.Methods(http.MethodPost).Path("/v1/galleries/{gallery}/settings/{feature}/toggle").HandlerFunc(app.toggleSettingHandler)

	router.Methods(http.MethodGet).Path("/v1/galleries/{gallery}/images/{image}").HandlerFunc(app.getImageHandler)
	router.Methods(http.MethodPost).Path("/v1/galleries/{gallery}/images/{image}").HandlerFunc(app.uploadImageHandler)
	router.Methods(http.MethodDelete).Path("/v1/galleries/{gallery}/images/{image}").HandlerFunc(app.deleteImageHandler)
	router.Methods(http.MethodGet).Path("/v1/galleries/{gallery}/images/{image}/file").HandlerFunc(app.downloadImageHandler)
	router.Methods(http.MethodGet).Path("/v1/galleries/{gallery}/thumbs/{image}").HandlerFunc(app.thumbnailHandler)

	router.Methods(http.MethodPost).Path("/v1/galleries/{gallery}/images/{image}/vote").HandlerFunc(app.voteHandler)
	router.Methods(http.MethodGet).Path("/v1/galleries/{gallery}/images/{image}/vote").HandlerFunc(app.voteStateHandler)

	router.Methods(http.MethodGet).Path("/v1/changes").HandlerFunc(app.lastChangeHandler)
	router.Methods(http.MethodPost).Path("/v1/contact").HandlerFunc(app.contactHandler)
	router.Methods(http.MethodGet).Path("/v1/healthcheck").HandlerFunc(app.healthcheckHandler)
	router.Methods(http.MethodGet).Path("/v1/admin/config").HandlerFunc(app.showConfigHandler)

	if app.config.Metrics.MetricsEndpoint != "" {
		router.Methods(http.MethodGet).Path(app.config.Metrics.MetricsEndpoint).Handler(promhttp.Handler())
	}

	router.NotFoundHandler = http.HandlerFunc(app.routeNotFoundHandler)
	router.MethodNotAllowedHandler = http.HandlerFunc(app.methodNotAllowedHandler)

	handler := app.authenticate(router)
	handler = app.rateLimit(handler)
	handler = app.enableCORS(handler)
	handler = app.recoverPanic(handler)
	handler = app.metrics(handler)
	handler = app.logging(handler)
	return handler
}

func (app *application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.Address, app.config.Port),
		Handler:      app.handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		app.logger.Infow("shutting down server", "signal", s.String())

		// Call Shutdown() on our server. Shutdown() will return nil if the
		// graceful shutdown was successful, or an error (which may happen
		// because of a problem closing the listeners, or because the shutdown
		// didn't complete before the 5-second context deadline is hit). We
		// relay this return value to the shutdownError channel.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		// Call Wait() to block until our WaitGroup counter is zero, that is,
		// until the background goroutines have finished.
		app.bgTasks.Wait()

		shutdownError <- err
	}()

	app.logger.Infow("starting server",
		"addr", srv.Addr,
		"env", app.config.Env,
	)

	// Calling Shutdown() on our server will cause ListenAndServe() to immediately
	// return a http.ErrServerClosed error. So if we see this error, it is actually a
	// good thing and an indication that the graceful shutdown has started. So we check
	// specifically for this, only returning the error if it is NOT http.ErrServerClosed.
	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Infow("stopped server", "addr", srv.Addr)
	return nil
}

// The background() helper runs an arbitrary function in a goroutine tracked
// by the application wait group, so a graceful shutdown waits for it.
func (app *application) background(fn func()) {
	app.bgTasks.Add(1)
	go func() {
		defer app.bgTasks.Done()
		defer func() {
			if err := recover(); err != nil {
				app.logger.Errorw("background task panic", "err", err)
			}
		}()
		fn()
	}()
}
