package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"taskboard/utilities"
)

// NewApp initializes the Admin SDK from a service-account file. projectID
// may be empty when the credentials file carries it.
func NewApp(ctx context.Context, credentialsPath, projectID string) (*firebase.App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is not set")
	}

	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		utilities.LogError(err, "NewApp: failed to initialize Firebase")
		return nil, fmt.Errorf("initialize firebase: %w", err)
	}

	utilities.LogInfo("Firebase initialized")
	return app, nil
}

func NewFirestoreClient(ctx context.Context, app *firebase.App) (*firestore.Client, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return client, nil
}
