package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const MongoCollectionAppointments = "appointments"

// mongoAppointment is the stored document. ActiveSlot is set only while the
// appointment occupies its slot; a unique partial index on it enforces one
// active booking per slot.
type mongoAppointment struct {
	ID          primitive.ObjectID `bson:"_id"`
	Appointment `bson:",inline"`
	ActiveSlot  *string `bson:"activeSlot,omitempty"`
}

func (d mongoAppointment) toAppointment() Appointment {
	a := d.Appointment
	a.ID = d.ID.Hex()
	return a
}

type MongoRepository struct {
	Collection *mongo.Collection
}

func NewMongoRepository(client *mongo.Client, dbName string) *MongoRepository {
	return &MongoRepository{
		Collection: client.Database(dbName).Collection(MongoCollectionAppointments),
	}
}

// EnsureIndexes creates the lookup indexes and the active slot constraint.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "hospitalId", Value: 1}}},
		{Keys: bson.D{{Key: "doctorId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}},
		{
			Keys: bson.D{{Key: "activeSlot", Value: 1}},
			Options: options.Index().
				SetName("appointments_active_slot_uq").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"activeSlot": bson.M{"$exists": true}}),
		},
	}
	if _, err := r.Collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create appointment indexes: %w", err)
	}
	return nil
}

func activeSlotFor(a Appointment) *string {
	if !a.Status.Active() {
		return nil
	}
	key := a.Slot().Key()
	return &key
}

// buildMongoFilter translates a Filter into a query document.
func buildMongoFilter(filter Filter) bson.M {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.HospitalID != "" {
		q["hospitalId"] = filter.HospitalID
	}
	if filter.DoctorID != "" {
		q["doctorId"] = filter.DoctorID
	}
	if filter.Date != "" {
		q["date"] = filter.Date
	}
	return q
}

var scheduleSort = bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}, {Key: "_id", Value: 1}}

func (r *MongoRepository) Insert(ctx context.Context, appt Appointment) (*Appointment, error) {
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	if err := validateForInsert(appt); err != nil {
		return nil, err
	}

	appt.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	doc := mongoAppointment{
		ID:          primitive.NewObjectID(),
		Appointment: appt,
		ActiveSlot:  activeSlotFor(appt),
	}

	if _, err := r.Collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	out := doc.toAppointment()
	return &out, nil
}

func (r *MongoRepository) FindConflict(ctx context.Context, slot Slot) (*Appointment, error) {
	return r.findOne(ctx, bson.M{
		"doctorId": slot.DoctorID,
		"date":     slot.Date,
		"time":     slot.Time,
		"status":   bson.M{"$ne": StatusCancelled},
	})
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*Appointment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoRepository) findOne(ctx context.Context, q bson.M) (*Appointment, error) {
	var doc mongoAppointment
	err := r.Collection.FindOne(ctx, q).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	out := doc.toAppointment()
	return &out, nil
}

func (r *MongoRepository) FindByUser(ctx context.Context, userID string) ([]Appointment, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *MongoRepository) FindAll(ctx context.Context, filter Filter) ([]Appointment, error) {
	return r.find(ctx, buildMongoFilter(filter))
}

func (r *MongoRepository) find(ctx context.Context, q bson.M) ([]Appointment, error) {
	cursor, err := r.Collection.Find(ctx, q, options.Find().SetSort(scheduleSort))
	if err != nil {
		return nil, fmt.Errorf("find appointments: %w", err)
	}
	var docs []mongoAppointment
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	out := make([]Appointment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAppointment())
	}
	return out, nil
}

// statusUpdate sets the status and keeps activeSlot in step with it, computed
// from the stored slot fields so no prior read is needed.
func statusUpdate(to AppointmentStatus) mongo.Pipeline {
	if !to.Active() {
		return mongo.Pipeline{
			{{Key: "$set", Value: bson.D{{Key: "status", Value: to}}}},
			{{Key: "$unset", Value: "activeSlot"}},
		}
	}
	slot := bson.D{{Key: "$concat", Value: bson.A{"$doctorId", "|", "$date", "|", "$time"}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "status", Value: to}, {Key: "activeSlot", Value: slot}}}},
	}
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, from []AppointmentStatus, to AppointmentStatus) (*Appointment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}

	var doc mongoAppointment
	err = r.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "status": bson.M{"$in": from}},
		statusUpdate(to),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Nothing matched: either the id is unknown or the status guard failed.
			if _, err := r.FindByID(ctx, id); err != nil {
				return nil, err
			}
			return nil, ErrInvalidStatusTransition
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	out := doc.toAppointment()
	return &out, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrAppointmentNotFound
	}
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.Collection.Database().Client().Ping(ctx, nil)
}
