package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection   = "users"
	dialogsCollection = "dialogs"
)

type dialog struct {
	UserId    int64     `bson:"user_id"`
	Turns     []Turn    `bson:"turns"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStorage is the alternative durable backend. Quota rows live in
// the users collection; each user's turns live as a capped array in a
// single dialogs document, trimmed atomically with $push + $slice.
type MongoStorage struct {
	client  *mongo.Client
	users   *mongo.Collection
	dialogs *mongo.Collection
	cap     int
	now     func() time.Time
	log     *slog.Logger
}

func NewMongoStorage(uri, database string, historyTurns int, log *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	db := client.Database(database)
	m := &MongoStorage{
		client:  client,
		users:   db.Collection(usersCollection),
		dialogs: db.Collection(dialogsCollection),
		cap:     historyTurns * 2,
		now:     time.Now,
		log:     log,
	}

	for _, coll := range []*mongo.Collection{m.users, m.dialogs} {
		_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			log.Warn("creating index", slog.String("error", err.Error()))
		}
	}

	return m, nil
}

func (m *MongoStorage) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (m *MongoStorage) GetOrCreateUser(userID int64, username string) (User, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	today := m.now().UTC().Format(dateLayout)

	var u User
	err := m.users.FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		u = User{ID: userID, Username: username, LastReset: today}
		if _, err = m.users.InsertOne(ctx, u); err != nil {
			return User{}, fmt.Errorf("inserting user %d: %w", userID, err)
		}
		return u, nil
	}
	if err != nil {
		return User{}, fmt.Errorf("finding user %d: %w", userID, err)
	}

	if u.LastReset != today {
		_, err = m.users.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
			"$set": bson.M{"messages_today": 0, "last_reset": today},
		})
		if err != nil {
			return User{}, fmt.Errorf("resetting counter for user %d: %w", userID, err)
		}
		u.MessagesToday = 0
		u.LastReset = today
	}
	return u, nil
}

func (m *MongoStorage) IncrementCounter(userID int64) error {
	ctx, cancel := m.opCtx()
	defer cancel()

	_, err := m.users.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$inc": bson.M{"messages_today": 1},
	})
	if err != nil {
		return fmt.Errorf("incrementing counter for user %d: %w", userID, err)
	}
	return nil
}

func (m *MongoStorage) AppendTurn(userID int64, role, content string) error {
	ctx, cancel := m.opCtx()
	defer cancel()

	update := bson.M{
		"$push": bson.M{
			"turns": bson.M{
				"$each":  []Turn{{Role: role, Content: content}},
				"$slice": -m.cap,
			},
		},
		"$set":         bson.M{"updated_at": m.now()},
		"$setOnInsert": bson.M{"user_id": userID},
	}
	opts := options.Update().SetUpsert(true)
	_, err := m.dialogs.UpdateOne(ctx, bson.M{"user_id": userID}, update, opts)
	if err != nil {
		return fmt.Errorf("appending turn for user %d: %w", userID, err)
	}
	return nil
}

func (m *MongoStorage) GetHistory(userID int64) ([]Turn, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	var d dialog
	err := m.dialogs.FindOne(ctx, bson.M{"user_id": userID}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding dialog for user %d: %w", userID, err)
	}
	return d.Turns, nil
}

func (m *MongoStorage) ClearHistory(userID int64) error {
	ctx, cancel := m.opCtx()
	defer cancel()

	_, err := m.dialogs.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("clearing dialog for user %d: %w", userID, err)
	}
	return nil
}

func (m *MongoStorage) Close() error {
	ctx, cancel := m.opCtx()
	defer cancel()
	return m.client.Disconnect(ctx)
}
