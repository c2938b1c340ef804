package sessionRepo

import (
	"context"
	"fmt"
	"time"

	"confiido/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// holdCellMinutes is the width of one hold cell. Every reserved window is
// decomposed into 15-minute cells and each cell is claimed with its own hold
// document.
const holdCellMinutes = 15

// sessionHold claims one 15-minute cell of a mentor's day for a session. The
// unique index on (mentor_id, scheduled_date, cell_start) is what makes
// concurrent overlapping reservations conflict: any two overlapping windows
// share at least one cell, so the second transaction to commit aborts on a
// duplicate key even though snapshot isolation hides the first one's
// documents from its reads.
type sessionHold struct {
	MentorID      string `bson:"mentor_id"`
	ScheduledDate string `bson:"scheduled_date"`
	CellStart     string `bson:"cell_start"`
	SessionID     string `bson:"session_id"`
}

func holdDocs(session *models.Session) ([]interface{}, error) {
	start, err := time.Parse("15:04", session.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid session start time %q: %w", session.StartTime, err)
	}
	end, err := time.Parse("15:04", session.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid session end time %q: %w", session.EndTime, err)
	}

	var docs []interface{}
	for cur := start; cur.Before(end); cur = cur.Add(holdCellMinutes * time.Minute) {
		docs = append(docs, sessionHold{
			MentorID:      session.MentorID,
			ScheduledDate: session.ScheduledDate,
			CellStart:     cur.Format("15:04"),
			SessionID:     session.ID,
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("session window %s-%s covers no cells", session.StartTime, session.EndTime)
	}
	return docs, nil
}

// CreateSessionWithBooking claims the window's hold cells, upserts the booking
// aggregate and inserts the session inside one transaction. The overlap count
// is a fast path; the authoritative conflict signal is the duplicate-key abort
// on the hold inserts, which fires even for overlapping-but-distinct windows
// committed concurrently.
func (repo *MongoSessionRepo) CreateSessionWithBooking(ctx context.Context, session *models.Session) (*models.Booking, error) {
	client := repo.sessionColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	var booking *models.Booking

	txnFn := func(sc mongo.SessionContext) error {
		overlapFilter := bson.M{
			"mentor_id":      session.MentorID,
			"scheduled_date": session.ScheduledDate,
			"active":         true,
			"start_time":     bson.M{"$lt": session.EndTime},
			"end_time":       bson.M{"$gt": session.StartTime},
		}
		count, err := repo.sessionColl.CountDocuments(sc, overlapFilter)
		if err != nil {
			return fmt.Errorf("overlap check failed: %w", err)
		}
		if count > 0 {
			return ErrSlotTaken
		}

		holds, err := holdDocs(session)
		if err != nil {
			return err
		}
		if _, err := repo.holdColl.InsertMany(sc, holds); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrSlotTaken
			}
			return fmt.Errorf("claim hold cells failed: %w", err)
		}

		b, err := repo.findOrCreateBooking(sc, session.ClientID, session.MentorID)
		if err != nil {
			return err
		}
		session.BookingID = b.ID

		if _, err := repo.sessionColl.InsertOne(sc, session); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrSlotTaken
			}
			return fmt.Errorf("insert session failed: %w", err)
		}

		update := bson.M{
			"$addToSet": bson.M{"session_ids": session.ID},
			"$set":      bson.M{"updated_at": session.CreatedAt},
		}
		if _, err := repo.bookingColl.UpdateOne(sc, bson.M{"id": b.ID}, update); err != nil {
			return fmt.Errorf("attach session to booking failed: %w", err)
		}
		b.SessionIDs = append(b.SessionIDs, session.ID)
		booking = b
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return nil, err
	}

	return booking, nil
}

func (repo *MongoSessionRepo) findOrCreateBooking(sc mongo.SessionContext, clientID, mentorID string) (*models.Booking, error) {
	filter := bson.M{"client_id": clientID, "mentor_id": mentorID}
	var b models.Booking
	err := repo.bookingColl.FindOne(sc, filter).Decode(&b)
	if err == nil {
		return &b, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("error fetching booking: %w", err)
	}

	now := time.Now()
	b = models.Booking{
		ID:        uuid.New().String(),
		MentorID:  mentorID,
		ClientID:  clientID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := repo.bookingColl.InsertOne(sc, &b); err != nil {
		return nil, fmt.Errorf("error creating booking: %w", err)
	}
	return &b, nil
}

// GetSessionByID retrieves a session document by ID.
func (repo *MongoSessionRepo) GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	var s models.Session
	if err := repo.sessionColl.FindOne(ctx, bson.M{"id": sessionID}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching session %s: %w", sessionID, err)
	}
	return &s, nil
}

// GetBookingByID retrieves a booking aggregate by ID.
func (repo *MongoSessionRepo) GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var b models.Booking
	if err := repo.bookingColl.FindOne(ctx, bson.M{"id": bookingID}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", bookingID, err)
	}
	return &b, nil
}

// MarkSessionPaid performs the conditional pending→paid transition. The
// deadline is part of the filter, so a payment that lands after timeout_at
// cannot win even if it races the expiry sweep.
func (repo *MongoSessionRepo) MarkSessionPaid(ctx context.Context, sessionID string, upd PaidUpdate) (*models.Session, error) {
	filter := bson.M{
		"id":         sessionID,
		"status":     models.SessionPending,
		"timeout_at": bson.M{"$gte": upd.CompletedAt},
	}
	update := bson.M{"$set": bson.M{
		"status":               models.SessionPaid,
		"payment_status":       models.PaymentPaid,
		"timeout_status":       models.TimeoutCompleted,
		"payment_method":       upd.PaymentMethod,
		"loyalty_points_used":  upd.LoyaltyPointsUsed,
		"final_amount":         upd.FinalAmount,
		"payment_completed_at": upd.CompletedAt,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var s models.Session
	if err := repo.sessionColl.FindOneAndUpdate(ctx, filter, update, opts).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNoTransition
		}
		return nil, fmt.Errorf("error marking session %s paid: %w", sessionID, err)
	}
	return &s, nil
}

// MarkSessionTerminal performs the conditional pending→cancelled/expired
// transition and releases the slot: it clears the active flag and deletes the
// session's hold cells in the same transaction, so the window is immediately
// re-bookable once the transition commits.
func (repo *MongoSessionRepo) MarkSessionTerminal(ctx context.Context, sessionID string, upd TerminalUpdate) (*models.Session, error) {
	client := repo.sessionColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	var s models.Session

	txnFn := func(sc mongo.SessionContext) error {
		filter := bson.M{"id": sessionID, "status": models.SessionPending}
		update := bson.M{"$set": bson.M{
			"status":              upd.Status,
			"payment_status":      models.PaymentFailed,
			"timeout_status":      models.TimeoutExpired,
			"active":              false,
			"cancellation_reason": upd.Reason,
			"cancelled_by":        upd.CancelledBy,
			"cancelled_at":        upd.CancelledAt,
		}}

		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		if err := repo.sessionColl.FindOneAndUpdate(sc, filter, update, opts).Decode(&s); err != nil {
			if err == mongo.ErrNoDocuments {
				return ErrNoTransition
			}
			return fmt.Errorf("error marking session %s terminal: %w", sessionID, err)
		}

		if _, err := repo.holdColl.DeleteMany(sc, bson.M{"session_id": sessionID}); err != nil {
			return fmt.Errorf("release hold cells for session %s failed: %w", sessionID, err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return nil, err
	}

	return &s, nil
}
