package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Files is the repository for uploaded-file records. A record is created in
// the processing state and transitions exactly once to completed or failed.
type Files struct {
	mgr *Manager
}

func NewFiles(mgr *Manager) *Files {
	return &Files{mgr: mgr}
}

func (r *Files) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.mgr.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection("files"), nil
}

// Create inserts the record, assigning an id and the processing status.
func (r *Files) Create(ctx context.Context, f *File) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.ProcessingStatus = StatusProcessing
	f.CreatedAt = time.Now().UTC()

	_, err = coll.InsertOne(ctx, f)
	return err
}

// MarkCompleted records the extraction outcome and moves the record to its
// terminal completed state.
func (r *Files) MarkCompleted(ctx context.Context, id, extractedText, cdnURL string, metadata map[string]interface{}) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"processingStatus": StatusCompleted,
		"extractedText":    extractedText,
		"cdnUrl":           cdnURL,
		"metadata":         metadata,
	}}
	_, err = coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// MarkFailed records the extraction error and moves the record to its
// terminal failed state.
func (r *Files) MarkFailed(ctx context.Context, id, errMsg string) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"processingStatus": StatusFailed,
		"errorMessage":     errMsg,
	}}
	_, err = coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// Get fetches a file record owned by userID.
func (r *Files) Get(ctx context.Context, userID, id string) (*File, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var f File
	err = coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
