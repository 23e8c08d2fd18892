package repository

import (
	"context"
	"errors"
	"fleet-tracker/internal/config"
	"fleet-tracker/internal/repository/model"
	"fleet-tracker/internal/repository/registrytypes"
	"fmt"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"time"
)

const (
	databaseName = "fleet-tracker"

	playerCollectionName      = "player"
	gameServerCollectionName  = "gameServer"
	proxyServerCollectionName = "proxyServer"
)

type mongoRepository struct {
	db *mongo.Database

	playerCollection      *mongo.Collection
	gameServerCollection  *mongo.Collection
	proxyServerCollection *mongo.Collection
}

func NewMongoRepository(ctx context.Context, cfg *config.MongoDBConfig) (Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetRegistry(createCodecRegistry()))
	if err != nil {
		return nil, err
	}

	database := client.Database(databaseName)
	r := &mongoRepository{
		db:                    database,
		playerCollection:      database.Collection(playerCollectionName),
		gameServerCollection:  database.Collection(gameServerCollectionName),
		proxyServerCollection: database.Collection(proxyServerCollectionName),
	}

	if err := r.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return r, nil
}

func (r *mongoRepository) createIndexes(ctx context.Context) error {
	// Admission counts online players per server.
	_, err := r.playerCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "gameServerId", Value: 1}, {Key: "lastContact", Value: 1}},
	})
	if err != nil {
		return err
	}

	for _, coll := range []*mongo.Collection{r.playerCollection, r.gameServerCollection, r.proxyServerCollection} {
		_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "lastContact", Value: 1}}})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *mongoRepository) HealthPing(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}

func (r *mongoRepository) UpsertPlayer(ctx context.Context, playerId uuid.UUID, name string, now time.Time) (*model.Player, error) {
	return upsert[model.Player](ctx, r.playerCollection, playerId, bson.M{
		"name":         name,
		"gameServerId": "",
		"lastContact":  now,
	})
}

func (r *mongoRepository) GetPlayer(ctx context.Context, playerId uuid.UUID) (*model.Player, error) {
	return findOne[model.Player](ctx, r.playerCollection, playerId)
}

func (r *mongoRepository) UpdatePlayer(ctx context.Context, playerId uuid.UUID, patch model.PlayerPatch) (*model.Player, error) {
	set := bson.M{}
	if patch.GameServerId != nil {
		set["gameServerId"] = *patch.GameServerId
	}

	return findOneAndUpdate[model.Player](ctx, r.playerCollection, playerId, createUpdate(set, patch.LastContact))
}

func (r *mongoRepository) TouchPlayers(ctx context.Context, playerIds []uuid.UUID, now time.Time) (int64, error) {
	if len(playerIds) == 0 {
		return 0, nil
	}

	res, err := r.playerCollection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": playerIds}},
		bson.M{"$max": bson.M{"lastContact": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (r *mongoRepository) CountPlayers(ctx context.Context, filter model.Filter) (int64, error) {
	return r.playerCollection.CountDocuments(ctx, createFilter(filter))
}

func (r *mongoRepository) FindPlayers(ctx context.Context, filter model.Filter) ([]*model.Player, error) {
	return findMany[model.Player](ctx, r.playerCollection, createFilter(filter))
}

func (r *mongoRepository) UpsertGameServer(ctx context.Context, server *model.GameServer) (*model.GameServer, error) {
	return upsert[model.GameServer](ctx, r.gameServerCollection, server.Id, bson.M{
		"name":           server.Name,
		"ip":             server.Ip,
		"port":           server.Port,
		"maximumPlayers": server.MaximumPlayers,
		"lastContact":    server.LastContact,
	})
}

func (r *mongoRepository) GetGameServer(ctx context.Context, serverId string) (*model.GameServer, error) {
	return findOne[model.GameServer](ctx, r.gameServerCollection, serverId)
}

func (r *mongoRepository) UpdateGameServer(ctx context.Context, serverId string, patch model.GameServerPatch) (*model.GameServer, error) {
	set := bson.M{}
	if patch.Ip != nil {
		set["ip"] = *patch.Ip
	}
	if patch.Port != nil {
		set["port"] = *patch.Port
	}
	if patch.MaximumPlayers != nil {
		set["maximumPlayers"] = *patch.MaximumPlayers
	}

	return findOneAndUpdate[model.GameServer](ctx, r.gameServerCollection, serverId, createUpdate(set, patch.LastContact))
}

func (r *mongoRepository) CountGameServers(ctx context.Context, filter model.Filter) (int64, error) {
	return r.gameServerCollection.CountDocuments(ctx, createFilter(filter))
}

func (r *mongoRepository) FindGameServers(ctx context.Context, filter model.Filter) ([]*model.GameServer, error) {
	return findMany[model.GameServer](ctx, r.gameServerCollection, createFilter(filter))
}

func (r *mongoRepository) UpsertProxyServer(ctx context.Context, server *model.ProxyServer) (*model.ProxyServer, error) {
	return upsert[model.ProxyServer](ctx, r.proxyServerCollection, server.Id, bson.M{
		"name":        server.Name,
		"ip":          server.Ip,
		"port":        server.Port,
		"lastContact": server.LastContact,
	})
}

func (r *mongoRepository) GetProxyServer(ctx context.Context, serverId string) (*model.ProxyServer, error) {
	return findOne[model.ProxyServer](ctx, r.proxyServerCollection, serverId)
}

func (r *mongoRepository) UpdateProxyServer(ctx context.Context, serverId string, patch model.ProxyServerPatch) (*model.ProxyServer, error) {
	set := bson.M{}
	if patch.Ip != nil {
		set["ip"] = *patch.Ip
	}
	if patch.Port != nil {
		set["port"] = *patch.Port
	}

	return findOneAndUpdate[model.ProxyServer](ctx, r.proxyServerCollection, serverId, createUpdate(set, patch.LastContact))
}

func (r *mongoRepository) CountProxyServers(ctx context.Context, filter model.Filter) (int64, error) {
	return r.proxyServerCollection.CountDocuments(ctx, createFilter(filter))
}

func (r *mongoRepository) FindProxyServers(ctx context.Context, filter model.Filter) ([]*model.ProxyServer, error) {
	return findMany[model.ProxyServer](ctx, r.proxyServerCollection, createFilter(filter))
}

// upsert only writes insertFields when the document is created.
func upsert[T any](ctx context.Context, coll *mongo.Collection, id any, insertFields bson.M) (*T, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc T
	err := coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$setOnInsert": insertFields}, opts).Decode(&doc)
	if err != nil {
		// Two concurrent upserts of the same id: the loser observes the winner's document.
		if mongo.IsDuplicateKeyError(err) {
			return findOne[T](ctx, coll, id)
		}
		return nil, err
	}
	return &doc, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, id any) (*T, error) {
	var doc T
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func findOneAndUpdate[T any](ctx context.Context, coll *mongo.Collection, id any, update bson.M) (*T, error) {
	if len(update) == 0 {
		return findOne[T](ctx, coll, id)
	}

	var doc T
	err := coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) ([]*T, error) {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	docs := make([]*T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func createUpdate(set bson.M, lastContact *time.Time) bson.M {
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if lastContact != nil {
		update["$max"] = bson.M{"lastContact": *lastContact}
	}
	return update
}

func createFilter(f model.Filter) bson.M {
	filter := bson.M{}
	if !f.ContactedSince.IsZero() {
		filter["lastContact"] = bson.M{"$gte": f.ContactedSince}
	}
	if f.GameServerId != "" {
		filter["gameServerId"] = f.GameServerId
	}
	if f.ExcludePlayerId != uuid.Nil {
		filter["_id"] = bson.M{"$ne": f.ExcludePlayerId}
	}
	return filter
}

func createCodecRegistry() *bsoncodec.Registry {
	registry := bson.NewRegistry()
	registry.RegisterTypeEncoder(registrytypes.UUIDType, bsoncodec.ValueEncoderFunc(registrytypes.UuidEncodeValue))
	registry.RegisterTypeDecoder(registrytypes.UUIDType, bsoncodec.ValueDecoderFunc(registrytypes.UuidDecodeValue))
	return registry
}
