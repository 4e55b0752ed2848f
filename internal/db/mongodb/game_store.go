package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/farmline/backend/internal/game/models"
)

// ErrPersistence marks store I/O failures. The caller's in-memory state is
// unchanged and the save can be retried.
var ErrPersistence = errors.New("persistence failure")

// ErrGameNotFound is returned when no game matches the requested id.
var ErrGameNotFound = errors.New("game not found")

// GameStore handles database operations for games and the card catalog.
type GameStore struct {
	games  *mongo.Collection
	cards  *mongo.Collection
	logger *zap.SugaredLogger
}

// NewGameStore creates a game store over the given database.
func NewGameStore(db *mongo.Database, gamesColl, cardColl string, logger *zap.SugaredLogger) *GameStore {
	return &GameStore{
		games:  db.Collection(gamesColl),
		cards:  db.Collection(cardColl),
		logger: logger,
	}
}

// SaveGame upserts the full game aggregate. Players, loans, decks and the
// pending auction travel inside the one document, so a save is atomic at
// the game level.
func (s *GameStore) SaveGame(ctx context.Context, game *models.Game) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	game.UpdatedAt = time.Now()
	_, err := s.games.ReplaceOne(opCtx, bson.M{"_id": game.ID}, game, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: save game %s: %v", ErrPersistence, game.ID.Hex(), err)
	}
	return nil
}

// LoadGame fetches one game by hex id.
func (s *GameStore) LoadGame(ctx context.Context, id string) (*models.Game, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrGameNotFound, id)
	}

	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var game models.Game
	if err := s.games.FindOne(opCtx, bson.M{"_id": oid}).Decode(&game); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %q", ErrGameNotFound, id)
		}
		return nil, fmt.Errorf("%w: load game %s: %v", ErrPersistence, id, err)
	}
	return &game, nil
}

// LoadActiveGames fetches every game still in play, for registry restore on
// startup.
func (s *GameStore) LoadActiveGames(ctx context.Context) ([]*models.Game, error) {
	opCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cursor, err := s.games.Find(opCtx, bson.M{"status": models.GameStatusActive})
	if err != nil {
		return nil, fmt.Errorf("%w: query active games: %v", ErrPersistence, err)
	}
	defer cursor.Close(opCtx)

	var games []*models.Game
	for cursor.Next(opCtx) {
		var g models.Game
		if err := cursor.Decode(&g); err != nil {
			s.logger.Errorf("Failed to decode game document: %v", err)
			continue
		}
		games = append(games, &g)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate active games: %v", ErrPersistence, err)
	}
	return games, nil
}

// LoadCardCatalog fetches the card definitions. An empty collection returns
// an empty slice and no error; callers fall back to the compiled-in catalog.
func (s *GameStore) LoadCardCatalog(ctx context.Context) ([]models.Card, error) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := s.cards.Find(opCtx, bson.M{}, options.Find().SetSort(bson.M{"cardId": 1}))
	if err != nil {
		return nil, fmt.Errorf("%w: query card catalog: %v", ErrPersistence, err)
	}
	defer cursor.Close(opCtx)

	var defs []models.Card
	if err := cursor.All(opCtx, &defs); err != nil {
		return nil, fmt.Errorf("%w: decode card catalog: %v", ErrPersistence, err)
	}
	return defs, nil
}

// RemoveGames deletes games by hex id, used by housekeeping.
func (s *GameStore) RemoveGames(ctx context.Context, ids []string) error {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := s.games.DeleteMany(opCtx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return fmt.Errorf("%w: remove games: %v", ErrPersistence, err)
	}
	s.logger.Infof("Removed %d games", result.DeletedCount)
	return nil
}
