package repositories

import (
	"context"

	"geoclock/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AttendanceRepository struct {
	collection *mongo.Collection
}

func NewAttendanceRepository(db *mongo.Database) *AttendanceRepository {
	return &AttendanceRepository{
		collection: db.Collection("attendance"),
	}
}

// GetMonth returns every attendance document for the given UTC year and
// English month name. Clocked-in filtering happens client-side: querying by
// lastClockInTimestamp server-side would demand a composite index on every
// project database, and monthly rows are bounded by headcount.
func (ar *AttendanceRepository) GetMonth(ctx context.Context, year int, month string) ([]*models.Attendance, error) {
	cursor, err := ar.collection.Find(ctx, bson.M{
		"year":  year,
		"month": month,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []*models.Attendance
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Update writes the mutated attendance document back as a single document
// update. Values always serialize as a dense array.
func (ar *AttendanceRepository) Update(ctx context.Context, attendance *models.Attendance) error {
	_, err := ar.collection.UpdateOne(ctx,
		bson.M{"_id": attendance.ID},
		bson.M{"$set": bson.M{
			"monthlyWorkedHours":   attendance.MonthlyWorkedHours,
			"lastClockInTimestamp": attendance.LastClockInTimestamp,
			"values":               attendance.Values,
			"lastChanged":          attendance.LastChanged,
		}},
	)
	return err
}
