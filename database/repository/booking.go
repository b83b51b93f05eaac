package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripnest/database"
	"tripnest/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// BookingRepository defines the interface for completed-booking records.
type BookingRepository interface {
	Save(ctx context.Context, record *models.BookingRecord) error
	GetByID(ctx context.Context, bookingID string) (*models.BookingRecord, error)
}

// ErrBookingNotFound is returned when no record exists for the id.
var ErrBookingNotFound = errors.New("booking not found")

// MongoBookingRepo implements BookingRepository on MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

func NewMongoBookingRepo() *MongoBookingRepo {
	return &MongoBookingRepo{
		coll: database.Client().Database("tripnest").Collection("bookings"),
	}
}

func (r *MongoBookingRepo) Save(ctx context.Context, record *models.BookingRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to save booking record: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.BookingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var record models.BookingRecord
	err := r.coll.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking record: %w", err)
	}
	return &record, nil
}
