package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/locker"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/mailer"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
	"github.com/b0b7h3d0g/PhotoVoter/services/galleries"
	"github.com/b0b7h3d0g/PhotoVoter/services/images"
	"github.com/b0b7h3d0g/PhotoVoter/services/votes"
)

func main() {
	cfg, err := parseConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if cfg.DisplayVersion {
		fmt.Printf("API version: %s\n", version)
		return
	}

	logger := makeLogger(cfg.Env == "dev").Sugar()

	db, err := openDB(cfg)
	if err != nil {
		logger.Fatalf("cannot open db connection: %v", err)
	}
	storage, err := store.New(db, cfg.Storage.Root)
	if err != nil {
		logger.Fatalw("creating storage", "err", err)
	}

	galleryLocks := locker.New()

	var votesService votes.Service
	votesService = &votes.VotesService{Store: storage}
	votesService = votes.NewMetricsMiddleware(votesService)
	votesService = &votes.ValidationMiddleware{Next: votesService}
	votesService = &votes.AuthMiddleware{Next: votesService}

	var galleriesService galleries.Service
	galleriesService = galleries.NewGalleriesService(storage, logger)
	galleriesService = galleries.NewMetricsMiddleware(galleriesService)
	galleriesService = &galleries.ValidationMiddleware{Next: galleriesService}
	galleriesService = &galleries.AuthMiddleware{Next: galleriesService}

	var imagesService images.Service
	imagesService = images.NewImagesService(storage, galleryLocks, images.Config{
		UserQuota: cfg.Uploads.UserQuota,
		MaxWidth:  cfg.Uploads.MaxWidth,
		MaxHeight: cfg.Uploads.MaxHeight,
		Quality:   cfg.Uploads.Quality,
	}, logger)
	imagesService = images.NewMetricsMiddleware(imagesService)
	imagesService = &images.ValidationMiddleware{Next: imagesService}
	imagesService = &images.AuthMiddleware{Next: imagesService}

	mailer := mailer.New(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.Sender)

	app := application{
		votes:     votesService,
		galleries: galleriesService,
		images:    imagesService,
		auth:      auth.NewAuthenticator(cfg.Admins),
		mailer:    mailer,
		store:     storage,
		logger:    logger,
		config:    cfg,
	}

	err = app.serve()
	if err != nil {
		logger.Fatalw("shutting down server", "err", err)
	}
}

func openDB(cfg config) (*sqlx.DB, error) {
	// Create an empty connection pool for the configured driver, using
	// the DSN from the config struct.
	db, err := store.OpenDB(cfg.Db.Driver, cfg.Db.Dsn)
	if err != nil {
		return nil, err
	}
	// Set the maximum number of (in-use + idle) connections in the pool. Note that
	// passing a value less than or equal to 0 will mean there is no limit.
	db.SetMaxOpenConns(cfg.Db.MaxOpenConns)
	// Set the maximum number of idle connections in the pool. Again, passing a value
	// less than or equal to 0 will mean there is no limit.
	db.SetMaxIdleConns(cfg.Db.MaxIdleConns)
	// Set the maximum idle timeout.
	db.SetConnMaxIdleTime(time.Duration(cfg.Db.MaxIdleTime) * time.Minute)

	// Use PingContext() to establish a new connection to the database. If the
	// connection couldn't be established within the 5 second deadline, this
	// will return an error.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = db.PingContext(ctx)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func makeLogger(dev bool) *zap.Logger {
	var zapLogger *zap.Logger
	if dev {
		config := zap.NewDevelopmentEncoderConfig()
		config.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncodeTime = zapcore.ISO8601TimeEncoder
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(config), os.Stdout, zap.DebugLevel,
			),
		)
	} else {
		config := zap.NewProductionEncoderConfig()
		config.EncodeTime = zapcore.ISO8601TimeEncoder
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(config), os.Stdout, zap.DebugLevel,
			),
		)
	}
	return zapLogger
}
