package receta

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/farmalink/recetas/pkg/pagination"
)

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: database.Collection("recetas")}
}

func (r *MongoRepository) Insert(ctx context.Context, rec *Receta) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, rec)
	if err != nil {
		return WrapError(KindUpstreamUnavailable, err, "insertar receta falló")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		rec.ID = oid
	}
	return nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Receta, error) {
	var rec Receta
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewError(KindNotFound, "receta %s no encontrada", id.Hex())
		}
		return nil, WrapError(KindUpstreamUnavailable, err, "buscar receta falló")
	}
	return &rec, nil
}

func (r *MongoRepository) List(ctx context.Context, f Filter, p pagination.Params, sort []pagination.SortField) ([]*Receta, int, error) {
	query := buildQuery(f)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, WrapError(KindUpstreamUnavailable, err, "contar recetas falló")
	}

	opts := options.Find().
		SetSort(buildSort(sort)).
		SetSkip(int64(p.Offset())).
		SetLimit(int64(p.Limit))

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, WrapError(KindUpstreamUnavailable, err, "listar recetas falló")
	}
	defer cur.Close(ctx)

	recetas := []*Receta{}
	if err := cur.All(ctx, &recetas); err != nil {
		return nil, 0, WrapError(KindUpstreamUnavailable, err, "decodificar recetas falló")
	}

	return recetas, int(total), nil
}

func (r *MongoRepository) UpdateEstado(ctx context.Context, id primitive.ObjectID, u Update) (*Receta, error) {
	set := bson.M{
		"estadoValidacion": u.Estado,
		"updatedAt":        time.Now().UTC(),
	}
	if u.PacienteDNI != nil {
		set["pacienteDNI"] = *u.PacienteDNI
	}
	if u.MedicoCMP != nil {
		set["medicoCMP"] = *u.MedicoCMP
	}
	if u.FechaEmision != nil {
		set["fechaEmision"] = *u.FechaEmision
	}
	if u.Productos != nil {
		set["productos"] = u.Productos
	}
	if u.TextoExtraido != nil {
		set["textoExtraido"] = *u.TextoExtraido
	}

	after := options.After
	opts := &options.FindOneAndUpdateOptions{ReturnDocument: &after}

	var rec Receta
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewError(KindNotFound, "receta %s no encontrada", id.Hex())
		}
		return nil, WrapError(KindUpstreamUnavailable, err, "actualizar receta falló")
	}
	return &rec, nil
}

func (r *MongoRepository) UnsetArchivo(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$unset": bson.M{"archivoPDF": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return WrapError(KindUpstreamUnavailable, err, "quitar archivo falló")
	}
	if res.MatchedCount == 0 {
		return NewError(KindNotFound, "receta %s no encontrada", id.Hex())
	}
	return nil
}

func buildQuery(f Filter) bson.M {
	query := bson.M{}
	if f.PacienteDNI != "" {
		query["pacienteDNI"] = f.PacienteDNI
	}
	if f.MedicoCMP != "" {
		query["medicoCMP"] = f.MedicoCMP
	}
	if f.Estado != "" {
		query["estadoValidacion"] = f.Estado
	}
	if f.FechaDesde != nil || f.FechaHasta != nil {
		rangeQ := bson.M{}
		if f.FechaDesde != nil {
			rangeQ["$gte"] = *f.FechaDesde
		}
		if f.FechaHasta != nil {
			rangeQ["$lte"] = *f.FechaHasta
		}
		query["fechaEmision"] = rangeQ
	}
	return query
}

func buildSort(fields []pagination.SortField) bson.D {
	if len(fields) == 0 {
		return bson.D{{Key: "createdAt", Value: -1}}
	}
	sort := bson.D{}
	for _, f := range fields {
		dir := 1
		if f.Descending {
			dir = -1
		}
		sort = append(sort, bson.E{Key: f.Field, Value: dir})
	}
	return sort
}
