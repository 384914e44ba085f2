package db

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"saastracker-backend/internal/config"
)

// Firebase bundles the clients built from one Firebase Admin app.
// It replaces package-level client singletons: build it once with Open and pass it down.
type Firebase struct {
	App       *firebase.App
	Firestore *firestore.Client
	Auth      *auth.Client
}

// Open initializes the Firebase Admin SDK and returns the Firestore and Auth clients.
// Credentials come from a service account file, a base64 encoded service account JSON,
// or Application Default Credentials, in that order of preference.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (*Firebase, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var opts []option.ClientOption
	switch {
	case cfg.GoogleApplicationCredentials != "":
		log.Info("Initializing Firebase with credentials file", zap.String("path", cfg.GoogleApplicationCredentials))
		if _, err := os.Stat(cfg.GoogleApplicationCredentials); errors.Is(err, os.ErrNotExist) {
			// ADC may still be available in the environment.
			log.Warn("Credentials file does not exist", zap.String("path", cfg.GoogleApplicationCredentials))
		}
		opts = append(opts, option.WithCredentialsFile(cfg.GoogleApplicationCredentials))
	case cfg.FirebaseServiceAccountJSONBase64 != "":
		log.Info("Initializing Firebase with base64 encoded service account JSON")
		decoded, err := base64.StdEncoding.DecodeString(cfg.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode FIREBASE_SERVICE_ACCOUNT_JSON_BASE64: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
	default:
		log.Info("Initializing Firebase using Application Default Credentials")
	}

	var appConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		appConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Firestore: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("app.Auth: %w", err)
	}

	log.Info("Firebase Admin SDK initialized", zap.String("projectId", cfg.FirebaseProjectID))
	return &Firebase{App: app, Firestore: fs, Auth: authClient}, nil
}

// Close releases the Firestore connection. The Auth client holds no connection.
func (f *Firebase) Close() error {
	if f == nil || f.Firestore == nil {
		return nil
	}
	return f.Firestore.Close()
}

// Repositories returns the Firestore-backed repositories.
func (f *Firebase) Repositories() Repositories {
	return Repositories{
		Users:         NewFirestoreUserRepository(f.Firestore),
		Tools:         NewFirestoreToolRepository(f.Firestore),
		Subscriptions: NewFirestoreSubscriptionRepository(f.Firestore),
	}
}
