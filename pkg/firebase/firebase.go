package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// Options selects the Firebase services to initialize
type Options struct {
	CredentialsPath string
	APIKey          string // enables Toolkit
	Bucket          string // enables Bucket
	Auth            bool
	Firestore       bool
}

// App holds the initialized Firebase app and its service clients. Clients
// that were not requested are nil.
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
	Firestore   *firestore.Client
	Bucket      *gcs.BucketHandle
	Toolkit     *identitytoolkit.Service
}

// InitFirebase initializes the Firebase application and the requested clients
func InitFirebase(ctx context.Context, opts Options) (*App, error) {
	if opts.CredentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}

	// Check if the credentials file exists
	if _, err := os.Stat(opts.CredentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", opts.CredentialsPath)
	}

	var conf *firebase.Config
	if opts.Bucket != "" {
		conf = &firebase.Config{StorageBucket: opts.Bucket}
	}
	firebaseApp, err := firebase.NewApp(ctx, conf, option.WithCredentialsFile(opts.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	app := &App{FirebaseApp: firebaseApp}

	if opts.Auth {
		if app.AuthClient, err = firebaseApp.Auth(ctx); err != nil {
			return nil, fmt.Errorf("error getting firebase auth client: %w", err)
		}
		if app.Toolkit, err = identitytoolkit.NewService(ctx, option.WithAPIKey(opts.APIKey)); err != nil {
			return nil, fmt.Errorf("error creating identity toolkit service: %w", err)
		}
	}

	if opts.Firestore {
		if app.Firestore, err = firebaseApp.Firestore(ctx); err != nil {
			return nil, fmt.Errorf("error getting firestore client: %w", err)
		}
	}

	if opts.Bucket != "" {
		client, err := firebaseApp.Storage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting firebase storage client: %w", err)
		}
		if app.Bucket, err = client.DefaultBucket(); err != nil {
			return nil, fmt.Errorf("error getting storage bucket: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"auth":      opts.Auth,
		"firestore": opts.Firestore,
		"bucket":    opts.Bucket,
	}).Info("firebase app initialized")
	return app, nil
}

// Close releases the clients that hold connections
func (a *App) Close() {
	if a.Firestore != nil {
		if err := a.Firestore.Close(); err != nil {
			logrus.WithError(err).Error("failed to close firestore client")
		}
	}
}
