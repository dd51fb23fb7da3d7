package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sevasangam/puja-bookings/internal/domain"
	"github.com/sevasangam/puja-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CatalogRepository reads the pooja/temple/chadhava catalog maintained by the
// admin service. This engine never writes to it.
type CatalogRepository struct {
	poojas    *mongo.Collection
	temples   *mongo.Collection
	chadhavas *mongo.Collection
	logger    observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		poojas:    db.Collection("poojas"),
		temples:   db.Collection("temples"),
		chadhavas: db.Collection("chadhavas"),
		logger:    logger,
	}
}

type PoojaDoc struct {
	ID        uuid.UUID `bson:"_id"`
	TempleID  uuid.UUID `bson:"temple_id"`
	Name      string    `bson:"name"`
	BasePrice int64     `bson:"base_price"`
	Active    bool      `bson:"active"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type TempleDoc struct {
	ID   uuid.UUID `bson:"_id"`
	Name string    `bson:"name"`
	City string    `bson:"city"`
}

type ChadhavaDoc struct {
	ID    uuid.UUID `bson:"_id"`
	Name  string    `bson:"name"`
	Price int64     `bson:"price"`
	Icon  string    `bson:"icon"`
}

func (c *CatalogRepository) GetPooja(ctx context.Context, id uuid.UUID) (*domain.Pooja, error) {
	var doc PoojaDoc
	err := c.poojas.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithError(err).Error("failed to get pooja")
		return nil, err
	}
	return &domain.Pooja{ID: doc.ID, TempleID: doc.TempleID, Name: doc.Name, BasePrice: doc.BasePrice}, nil
}

func (c *CatalogRepository) GetTemple(ctx context.Context, id uuid.UUID) (*domain.Temple, error) {
	var doc TempleDoc
	err := c.temples.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithError(err).Error("failed to get temple")
		return nil, err
	}
	return &domain.Temple{ID: doc.ID, Name: doc.Name, City: doc.City}, nil
}

// GetChadhavas resolves the requested add-ons against the current catalog.
// Unknown ids surface as ErrNotFound rather than being dropped silently.
func (c *CatalogRepository) GetChadhavas(ctx context.Context, ids []uuid.UUID) ([]domain.Chadhava, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := c.chadhavas.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		c.logger.WithError(err).Error("failed to get chadhavas")
		return nil, err
	}
	defer cur.Close(ctx)

	found := make(map[uuid.UUID]domain.Chadhava, len(ids))
	for cur.Next(ctx) {
		var doc ChadhavaDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		found[doc.ID] = domain.Chadhava{ID: doc.ID, Name: doc.Name, Price: doc.Price, Icon: doc.Icon}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Chadhava, 0, len(ids))
	for _, id := range ids {
		ch, ok := found[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		out = append(out, ch)
	}
	return out, nil
}
