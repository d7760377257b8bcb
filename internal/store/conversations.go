package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const listLimit = 50

// Conversations is the repository for the conversations collection.
// Every query filters on userId so a caller can only reach its own records.
type Conversations struct {
	mgr *Manager
}

func NewConversations(mgr *Manager) *Conversations {
	return &Conversations{mgr: mgr}
}

func (r *Conversations) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.mgr.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection("conversations"), nil
}

// List returns the user's conversations, most recently updated first.
func (r *Conversations) List(ctx context.Context, userID string) ([]Conversation, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetLimit(listLimit)
	cur, err := coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	convs := []Conversation{}
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// Create inserts a new conversation with a store-assigned id.
func (r *Conversations) Create(ctx context.Context, userID, title, model string, messages []Message) (*Conversation, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	if messages == nil {
		messages = []Message{}
	}
	now := time.Now().UTC()
	conv := &Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Model:     model,
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := coll.InsertOne(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get fetches a single conversation owned by userID.
func (r *Conversations) Get(ctx context.Context, userID, id string) (*Conversation, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var conv Conversation
	err = coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Rename updates the conversation title.
func (r *Conversations) Rename(ctx context.Context, userID, id, title string) (*Conversation, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{"title": title, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var conv Conversation
	err = coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "userId": userID}, update, opts).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Delete removes the conversation.
func (r *Conversations) Delete(ctx context.Context, userID, id string) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage appends msg to the conversation and returns the updated
// record. Title derivation and updatedAt handling live in Conversation.Append.
func (r *Conversations) AppendMessage(ctx context.Context, userID, id string, msg Message) (*Conversation, error) {
	conv, err := r.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	conv.Append(msg)
	if err := r.replace(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// EditMessage rewrites a message and truncates everything after it,
// recording the prior content in the message's edit history.
func (r *Conversations) EditMessage(ctx context.Context, userID, id, messageID, newContent string) (*Conversation, error) {
	conv, err := r.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := conv.ApplyEdit(messageID, newContent, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := r.replace(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *Conversations) replace(ctx context.Context, conv *Conversation) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	_, err = coll.ReplaceOne(ctx, bson.M{"_id": conv.ID, "userId": conv.UserID}, conv)
	return err
}
