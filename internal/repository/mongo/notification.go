package mongo

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/heapoverflow/internal/model"
)

// InsertNotifications stores the batch with a single InsertMany.
func (s *Store) InsertNotifications(ctx context.Context, batch []model.Notification) error {
	if len(batch) == 0 {
		return nil
	}

	docs := make([]any, len(batch))
	for i := range batch {
		batch[i].ID = xid.New().String()
		docs[i] = batch[i]
	}

	if _, err := s.notifications.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("mongo: inserting %d notifications: %w", len(batch), err)
	}
	return nil
}

func (s *Store) ListNotificationsByRecipient(ctx context.Context, recipient string) ([]model.Notification, error) {
	out := []model.Notification{}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if err := findAll(ctx, s.notifications, bson.D{{Key: "recipient", Value: recipient}}, &out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	return updateList(ctx, s.notifications,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "isRead", Value: true}}}},
		"notification")
}
