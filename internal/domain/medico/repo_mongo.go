package medico

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: database.Collection("medicos")}
}

func (r *MongoRepository) Insert(ctx context.Context, m *Medico) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("insert medico: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.ID = oid
	}
	return nil
}

func (r *MongoRepository) FindByCMP(ctx context.Context, cmp string) (*Medico, error) {
	var m Medico
	err := r.coll.FindOne(ctx, bson.M{"cmp": cmp}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find medico by cmp: %w", err)
	}
	return &m, nil
}

func (r *MongoRepository) List(ctx context.Context, f Filter, limit, offset int) ([]*Medico, int, error) {
	query := bson.M{}
	if f.Nombre != "" {
		query["nombre"] = bson.M{"$regex": regexp.QuoteMeta(f.Nombre), "$options": "i"}
	}
	if f.Especialidad != "" {
		query["especialidad"] = bson.M{"$regex": regexp.QuoteMeta(f.Especialidad), "$options": "i"}
	}
	if f.Colegiatura != nil {
		query["colegiaturaValida"] = *f.Colegiatura
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count medicos: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "nombre", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list medicos: %w", err)
	}
	defer cur.Close(ctx)

	medicos := []*Medico{}
	if err := cur.All(ctx, &medicos); err != nil {
		return nil, 0, fmt.Errorf("decode medicos: %w", err)
	}

	return medicos, int(total), nil
}

// Upsert inserts or replaces a physician keyed by CMP. Used by the seed
// command to load directory snapshots.
func (r *MongoRepository) Upsert(ctx context.Context, m *Medico) error {
	now := time.Now().UTC()
	m.UpdatedAt = now

	update := bson.M{
		"$set": bson.M{
			"nombre":            m.Nombre,
			"especialidad":      m.Especialidad,
			"colegiaturaValida": m.ColegiaturaValida,
			"updatedAt":         m.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"createdAt": now,
		},
	}

	upsert := true
	_, err := r.coll.UpdateOne(ctx, bson.M{"cmp": m.CMP}, update, &options.UpdateOptions{Upsert: &upsert})
	if err != nil {
		return fmt.Errorf("upsert medico %s: %w", m.CMP, err)
	}
	return nil
}
