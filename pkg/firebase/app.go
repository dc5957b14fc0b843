package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	fb "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// Connector holds the Firebase app and its Firestore client.
type Connector struct {
	app       *fb.App
	Firestore *firestore.Client
}

// NewConnector initialises the Firebase app. An empty credentialsFile falls
// back to application default credentials.
func NewConnector(ctx context.Context, projectID, credentialsFile string) (*Connector, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting firestore client: %w", err)
	}

	return &Connector{app: app, Firestore: client}, nil
}

// Close closes the Firestore client.
func (c *Connector) Close() error {
	return c.Firestore.Close()
}
