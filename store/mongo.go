package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"debatehub/models"
	"debatehub/rating"
)

const connectTimeout = 10 * time.Second

var errAlreadyApplied = errors.New("store: rating updates already applied")

// MongoStore is the MongoDB-backed Store implementation.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// extractDBName parses the database name from the URI, defaulting to "debatehub".
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "debatehub"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:]
	}
	return "debatehub"
}

// NewMongoStore establishes a connection to MongoDB using the provided URI.
func NewMongoStore(uri string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(extractDBName(uri)),
	}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the core relies on, in particular the
// unique (debateId, userId) constraint that makes concurrent joins resolve
// to a single winner.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.participants().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "debateId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("participants index: %w", err)
	}

	_, err = s.factChecks().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "messageId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("fact_checks index: %w", err)
	}

	_, err = s.messages().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "debateId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("messages index: %w", err)
	}

	_, err = s.users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "rating", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	return nil
}

func (s *MongoStore) users() *mongo.Collection        { return s.db.Collection("users") }
func (s *MongoStore) userStats() *mongo.Collection    { return s.db.Collection("user_stats") }
func (s *MongoStore) debates() *mongo.Collection      { return s.db.Collection("debates") }
func (s *MongoStore) participants() *mongo.Collection { return s.db.Collection("debate_participants") }
func (s *MongoStore) messages() *mongo.Collection     { return s.db.Collection("messages") }
func (s *MongoStore) factChecks() *mongo.Collection   { return s.db.Collection("fact_checks") }
func (s *MongoStore) ratingApps() *mongo.Collection   { return s.db.Collection("rating_applications") }

func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := s.users().InsertOne(ctx, user); err != nil {
		return err
	}
	stats := models.UserStats{UserID: user.ID, RatingHistory: []models.RatingHistoryEntry{}, UpdatedAt: user.CreatedAt}
	_, err := s.userStats().InsertOne(ctx, stats)
	return err
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func (s *MongoStore) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	cursor, err := s.users().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var found []models.User
	if err := cursor.All(ctx, &found); err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(found))
	for _, user := range found {
		byID[user.ID] = user
	}
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, ok := byID[id]
		if !ok {
			return nil, ErrNotFound
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *MongoStore) ListUsersByRating(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "rating", Value: -1}})
	cursor, err := s.users().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MongoStore) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	if err := s.userStats().FindOne(ctx, bson.M{"_id": userID}).Decode(&stats); err != nil {
		return nil, mapNotFound(err)
	}
	return &stats, nil
}

func (s *MongoStore) CreateDebate(ctx context.Context, debate *models.Debate) error {
	_, err := s.debates().InsertOne(ctx, debate)
	return err
}

func (s *MongoStore) GetDebate(ctx context.Context, id string) (*models.Debate, error) {
	var debate models.Debate
	if err := s.debates().FindOne(ctx, bson.M{"_id": id}).Decode(&debate); err != nil {
		return nil, mapNotFound(err)
	}
	return &debate, nil
}

func (s *MongoStore) UpdateDebate(ctx context.Context, debate *models.Debate) error {
	result, err := s.debates().ReplaceOne(ctx, bson.M{"_id": debate.ID}, debate)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListDebates(ctx context.Context, status models.DebateStatus) ([]models.Debate, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.debates().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var debates []models.Debate
	if err := cursor.All(ctx, &debates); err != nil {
		return nil, err
	}
	return debates, nil
}

// DeleteDebate removes the debate and cascades to its participants,
// messages and their fact checks.
func (s *MongoStore) DeleteDebate(ctx context.Context, id string) error {
	result, err := s.debates().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	if _, err := s.participants().DeleteMany(ctx, bson.M{"debateId": id}); err != nil {
		return err
	}

	cursor, err := s.messages().Find(ctx, bson.M{"debateId": id},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return err
	}
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		messageIDs := make([]string, len(rows))
		for i, row := range rows {
			messageIDs[i] = row.ID
		}
		if _, err := s.factChecks().DeleteMany(ctx, bson.M{"messageId": bson.M{"$in": messageIDs}}); err != nil {
			return err
		}
	}
	_, err = s.messages().DeleteMany(ctx, bson.M{"debateId": id})
	return err
}

func (s *MongoStore) AddParticipant(ctx context.Context, participant *models.Participant) error {
	_, err := s.participants().InsertOne(ctx, participant)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateParticipant
	}
	return err
}

func (s *MongoStore) GetParticipant(ctx context.Context, debateID, userID string) (*models.Participant, error) {
	var participant models.Participant
	err := s.participants().FindOne(ctx, bson.M{"debateId": debateID, "userId": userID}).Decode(&participant)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &participant, nil
}

func (s *MongoStore) ListParticipants(ctx context.Context, debateID string) ([]models.Participant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joinedAt", Value: 1}})
	cursor, err := s.participants().Find(ctx, bson.M{"debateId": debateID}, opts)
	if err != nil {
		return nil, err
	}
	var participants []models.Participant
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

func (s *MongoStore) UpdateParticipantSide(ctx context.Context, debateID, userID string, side models.ParticipantSide) error {
	result, err := s.participants().UpdateOne(ctx,
		bson.M{"debateId": debateID, "userId": userID},
		bson.M{"$set": bson.M{"side": side}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, message *models.Message) error {
	_, err := s.messages().InsertOne(ctx, message)
	return err
}

func (s *MongoStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var message models.Message
	if err := s.messages().FindOne(ctx, bson.M{"_id": id}).Decode(&message); err != nil {
		return nil, mapNotFound(err)
	}
	return &message, nil
}

func (s *MongoStore) ListMessages(ctx context.Context, debateID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "seq", Value: 1}})
	cursor, err := s.messages().Find(ctx, bson.M{"debateId": debateID}, opts)
	if err != nil {
		return nil, err
	}
	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *MongoStore) SetMessageFlagged(ctx context.Context, messageID string, flagged bool) error {
	result, err := s.messages().UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{"isFlagged": flagged}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertFactCheck writes the fact check keyed on its message id. The unique
// index keeps concurrent verifications down to one persisted row; retries
// overwrite the earlier attempt instead of duplicating it.
func (s *MongoStore) UpsertFactCheck(ctx context.Context, factCheck *models.FactCheck) error {
	update := bson.M{
		"$set": bson.M{
			"claim":              factCheck.Claim,
			"verificationResult": factCheck.VerificationResult,
			"confidenceScore":    factCheck.ConfidenceScore,
			"sources":            factCheck.Sources,
		},
		"$setOnInsert": bson.M{
			"_id":       factCheck.ID,
			"createdAt": factCheck.CreatedAt,
		},
	}
	_, err := s.factChecks().UpdateOne(ctx,
		bson.M{"messageId": factCheck.MessageID},
		update,
		options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) GetFactCheckByMessage(ctx context.Context, messageID string) (*models.FactCheck, error) {
	var factCheck models.FactCheck
	err := s.factChecks().FindOne(ctx, bson.M{"messageId": messageID}).Decode(&factCheck)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &factCheck, nil
}

// ApplyRatingUpdates runs the conclusion's rating and stats writes inside a
// single transaction. The rating_applications row keyed on the debate id is
// the idempotency record: inserting it a second time hits the _id constraint
// and the whole transaction aborts without touching any user.
func (s *MongoStore) ApplyRatingUpdates(ctx context.Context, debateID string, concludedAt time.Time, updates []RatingUpdate) (bool, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return false, err
	}
	defer session.EndSession(ctx)

	callback := func(sc mongo.SessionContext) (interface{}, error) {
		_, err := s.ratingApps().InsertOne(sc, bson.M{"_id": debateID, "appliedAt": concludedAt})
		if mongo.IsDuplicateKeyError(err) {
			return nil, errAlreadyApplied
		}
		if err != nil {
			return nil, err
		}

		for _, update := range updates {
			result, err := s.users().UpdateByID(sc, update.UserID, bson.M{
				"$set": bson.M{"rating": update.NewRating, "updatedAt": concludedAt},
			})
			if err != nil {
				return nil, err
			}
			if result.MatchedCount == 0 {
				return nil, ErrNotFound
			}

			outcomeField := "draws"
			switch update.Outcome {
			case rating.OutcomeWin:
				outcomeField = "wins"
			case rating.OutcomeLoss:
				outcomeField = "losses"
			}
			entry := models.RatingHistoryEntry{Timestamp: concludedAt, Rating: update.NewRating}
			_, err = s.userStats().UpdateByID(sc, update.UserID, bson.M{
				"$inc":  bson.M{"totalDebates": 1, outcomeField: 1},
				"$push": bson.M{"ratingHistory": entry},
				"$set":  bson.M{"updatedAt": concludedAt},
			}, options.Update().SetUpsert(true))
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	if _, err := session.WithTransaction(ctx, callback); err != nil {
		if errors.Is(err, errAlreadyApplied) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
