package profile

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usersCollection = "users"

// FirestoreStore keeps one document per user in the users collection.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Merge writes fields into users/{userID}, creating the document if needed.
func (s *FirestoreStore) Merge(ctx context.Context, userID string, fields Fields) error {
	_, err := s.client.Collection(usersCollection).Doc(userID).Set(ctx, map[string]any(fields), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("merging profile %s: %w", userID, err)
	}
	return nil
}

// Get reads users/{userID}.
func (s *FirestoreStore) Get(ctx context.Context, userID string) (Fields, error) {
	snap, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading profile %s: %w", userID, err)
	}
	return Fields(snap.Data()), nil
}
