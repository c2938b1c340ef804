package notification

import (
	"context"
	"fmt"

	"confiido/models"
	"confiido/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// DefaultNotificationService is the production FCM implementation.
type DefaultNotificationService struct {
	Tokens TokenSource
	Logger *zap.Logger
}

func NewDefaultNotificationService(tokens TokenSource, logger *zap.Logger) (*DefaultNotificationService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("notification service initialization error: token source is nil")
	}
	return &DefaultNotificationService{Tokens: tokens, Logger: logger}, nil
}

func (s *DefaultNotificationService) push(ctx context.Context, userID, title, body string, data map[string]string) {
	token, err := s.Tokens.FCMToken(ctx, userID)
	if err != nil || token == "" {
		// No push target; silently skip.
		return
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		s.Logger.Warn("failed to send FCM message",
			zap.String("userID", userID), zap.Error(err))
	}
}

func sessionData(s *models.Session) map[string]string {
	return map[string]string{
		"bookingId": s.BookingID,
		"sessionId": s.ID,
		"date":      s.ScheduledDate,
		"startTime": s.StartTime,
		"status":    string(s.Status),
	}
}

// SessionCreated notifies both sides that a slot is held pending payment.
func (s *DefaultNotificationService) SessionCreated(ctx context.Context, sess *models.Session) {
	body := fmt.Sprintf("Session on %s at %s is reserved. Complete payment within the window to keep it.", sess.ScheduledDate, sess.StartTime)
	s.push(ctx, sess.ClientID, "Session reserved", body, sessionData(sess))
	s.push(ctx, sess.MentorID, "New session request", fmt.Sprintf("A client reserved %s at %s.", sess.ScheduledDate, sess.StartTime), sessionData(sess))
}

// SessionPaid confirms the booking to both sides.
func (s *DefaultNotificationService) SessionPaid(ctx context.Context, sess *models.Session) {
	body := fmt.Sprintf("Your session on %s at %s is confirmed.", sess.ScheduledDate, sess.StartTime)
	s.push(ctx, sess.ClientID, "Session confirmed", body, sessionData(sess))
	s.push(ctx, sess.MentorID, "Session confirmed", body, sessionData(sess))
}

// SessionExpired tells the client the held slot was released.
func (s *DefaultNotificationService) SessionExpired(ctx context.Context, sess *models.Session) {
	body := fmt.Sprintf("The payment window for your session on %s at %s has closed and the slot was released.", sess.ScheduledDate, sess.StartTime)
	s.push(ctx, sess.ClientID, "Session released", body, sessionData(sess))
}
