package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/picshare/backend/internal/auth"
	"github.com/anonto42/picshare/backend/internal/repositories"
	"github.com/anonto42/picshare/backend/internal/router"
	"github.com/anonto42/picshare/backend/internal/service"
	"github.com/anonto42/picshare/backend/internal/storage"
	"github.com/anonto42/picshare/backend/pkg/config"
	"github.com/anonto42/picshare/backend/pkg/firebase"
	"github.com/anonto42/picshare/backend/validators"
	"github.com/jessevdk/go-flags"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var errTerminated = errors.New("terminated")

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	lvl, _ := logrus.ParseLevel(cfg.LogLevel) // validated by the choice tag
	logrus.SetLevel(lvl)
	logrus.WithFields(logrus.Fields{
		"env":   cfg.Env,
		"store": cfg.StoreDriver,
		"auth":  cfg.AuthDriver,
		"blob":  cfg.BlobDriver,
	}).Info("starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connections
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize databases")
	}
	defer db.CloseDB()

	var fb *firebase.App
	if cfg.NeedsFirebase() {
		fb, err = firebase.InitFirebase(ctx, firebase.Options{
			CredentialsPath: cfg.FirebaseCredentialsPath,
			APIKey:          cfg.FirebaseAPIKey,
			Bucket:          bucketName(cfg),
			Auth:            cfg.AuthDriver == config.DriverFirebase,
			Firestore:       cfg.StoreDriver == config.DriverFirestore,
		})
		if err != nil {
			logrus.WithError(err).Fatal("failed to initialize firebase")
		}
		defer fb.Close()
	}

	deps := service.Dependencies{}
	mustSetupStore(ctx, cfg, db, fb, &deps)
	mustSetupAuth(cfg, db, fb, &deps)
	mustSetupBlobs(cfg, fb, &deps)

	svc := service.New(deps, service.Config{
		Retry:         cfg.RetryPolicy(),
		FeedWindow:    cfg.FeedWindow,
		UsernameGuard: !cfg.DisableUsernameGuard,
	})

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e)
	if cfg.BlobDriver == config.DriverLocal {
		e.Static("/uploads", cfg.LocalStoragePath)
	}
	sessions := router.SetupRoutes(e, svc)
	defer sessions.Close()

	gr, gctx := errgroup.WithContext(ctx)
	gr.Go(func() error {
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	gr.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

		select {
		case s := <-sigs:
			logrus.Infof("terminating by %s signal", s)
		case <-gctx.Done():
		}

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("failed to shut down http server")
		}
		return errTerminated
	})

	if err := gr.Wait(); err != nil && !errors.Is(err, errTerminated) {
		logrus.WithError(err).Error("server unexpectedly closed")
	}
}

func bucketName(cfg *config.Config) string {
	if cfg.BlobDriver == config.DriverFirebase {
		return cfg.FirebaseBucket
	}
	return ""
}

func mustSetupStore(ctx context.Context, cfg *config.Config, db *config.DB, fb *firebase.App, deps *service.Dependencies) {
	switch cfg.StoreDriver {
	case config.DriverFirestore:
		deps.Users = repositories.NewFirestoreUserRepository(fb.Firestore)
		deps.Posts = repositories.NewFirestorePostRepository(fb.Firestore)
		deps.Comments = repositories.NewFirestoreCommentRepository(fb.Firestore)
	case config.DriverMongo:
		mdb := db.Mongo.Database(cfg.MongoDatabase)
		users := repositories.NewMongoUserRepository(mdb)
		posts := repositories.NewMongoPostRepository(mdb)
		comments := repositories.NewMongoCommentRepository(mdb)
		for name, ensure := range map[string]func(context.Context) error{
			repositories.UsersCollection:    users.EnsureIndexes,
			repositories.PostsCollection:    posts.EnsureIndexes,
			repositories.CommentsCollection: comments.EnsureIndexes,
		} {
			if err := ensure(ctx); err != nil {
				logrus.WithError(err).WithField("collection", name).Fatal("failed to create indexes")
			}
		}
		deps.Users, deps.Posts, deps.Comments = users, posts, comments
	default:
		logrus.Warn("using the in-memory store, data is lost on restart")
		store := repositories.NewMemoryStore()
		deps.Users, deps.Posts, deps.Comments = store, store, store
	}
}

func mustSetupAuth(cfg *config.Config, db *config.DB, fb *firebase.App, deps *service.Dependencies) {
	if cfg.AuthDriver == config.DriverFirebase {
		deps.Auth = auth.NewFirebase(fb.AuthClient, fb.Toolkit)
		return
	}
	local := auth.NewLocal(db.Postgres, cfg.JWTSecret, cfg.JWTTTL)
	if err := local.Migrate(); err != nil {
		logrus.WithError(err).Fatal("failed to migrate credentials table")
	}
	deps.Auth = local
}

func mustSetupBlobs(cfg *config.Config, fb *firebase.App, deps *service.Dependencies) {
	if cfg.BlobDriver == config.DriverFirebase {
		deps.Blobs = storage.NewFirebase(fb.Bucket, cfg.FirebaseBucket)
		return
	}
	local, err := storage.NewLocal(cfg.LocalStoragePath, cfg.LocalStorageURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to prepare local storage")
	}
	deps.Blobs = local
}
