package repositories

import (
	"context"
	"errors"
	"time"

	"geoclock/models"
	"geoclock/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type EmployeeRepository struct {
	collection    *mongo.Collection
	logCollection *mongo.Collection
}

func NewEmployeeRepository(db *mongo.Database) *EmployeeRepository {
	return &EmployeeRepository{
		collection:    db.Collection("employees"),
		logCollection: db.Collection("location_logs"),
	}
}

// GetByUID returns the employee with the given uid, or nil when absent.
func (er *EmployeeRepository) GetByUID(ctx context.Context, uid string) (*models.Employee, error) {
	var employee models.Employee
	err := er.collection.FindOne(ctx, bson.M{"uid": uid}).Decode(&employee)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

// GetByTelegramChatID returns the employee linked to the chat, or nil.
func (er *EmployeeRepository) GetByTelegramChatID(ctx context.Context, chatID string) (*models.Employee, error) {
	var employee models.Employee
	err := er.collection.FindOne(ctx, bson.M{"telegramChatID": chatID}).Decode(&employee)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

// SetTelegramChatID links a chat to the employee document.
func (er *EmployeeRepository) SetTelegramChatID(ctx context.Context, employeeID, chatID string) error {
	_, err := er.collection.UpdateOne(ctx,
		bson.M{"_id": employeeID},
		bson.M{"$set": bson.M{
			"telegramChatID": chatID,
			"lastChanged":    time.Now().UTC(),
		}},
	)
	return err
}

// UpdateCurrentLocation atomically overwrites the employee's current
// location and advances lastChanged.
func (er *EmployeeRepository) UpdateCurrentLocation(ctx context.Context, employeeID string, location *models.CurrentLocation, lastChanged time.Time) error {
	result, err := er.collection.UpdateOne(ctx,
		bson.M{"_id": employeeID},
		bson.M{"$set": bson.M{
			"currentLocation": location,
			"lastChanged":     lastChanged,
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewWriteFailedError("update current location", mongo.ErrNoDocuments)
	}
	return nil
}

// FinalizeLiveLocation marks the employee's live session as ended without
// touching the rest of the location reduction.
func (er *EmployeeRepository) FinalizeLiveLocation(ctx context.Context, employeeID string, endedAt time.Time) error {
	_, err := er.collection.UpdateOne(ctx,
		bson.M{"_id": employeeID},
		bson.M{"$set": bson.M{
			"currentLocation.isLive":  false,
			"currentLocation.endedAt": endedAt,
			"lastChanged":             endedAt,
		}},
	)
	return err
}

// AppendLocationLog inserts one record into the append-only location log.
func (er *EmployeeRepository) AppendLocationLog(ctx context.Context, log *models.LocationLog) error {
	if log.ID == "" {
		log.ID = utils.GenerateUUID()
	}
	log.CreatedAt = time.Now().UTC()

	_, err := er.logCollection.InsertOne(ctx, log)
	return err
}
