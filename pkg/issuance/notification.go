package issuance

import (
	"context"
	"time"

	"vccore/pkg/apierror"
	"vccore/pkg/openid4vci"
)

// notificationState is what's persisted under a notification_id from the
// moment a credential is minted until the wallet acknowledges delivery (or
// the record expires unacknowledged). Event is empty until the first
// Notification call fills it in.
type notificationState struct {
	ExpiresAt   time.Time
	Event       string
	FirstSeenAt time.Time
}

// putNotification parks a freshly-minted notification_id, called from both
// Credential and DeferredCredential right after a credential is issued.
func (c *Core) putNotification(ctx context.Context, notificationID string, expiresAt time.Time) error {
	return c.StateStore.Put(ctx, "notification:"+notificationID, notificationState{ExpiresAt: expiresAt}, expiresAt)
}

// Notification implements §4.1 op 7: accept a wallet's delivery outcome for
// a previously-issued credential. The notification_id is never redeemed —
// it's looked up and updated in place, so a replay carrying the same event
// the wallet already reported succeeds instead of failing as
// invalid_notification_id; only a replay that disagrees with the
// previously-recorded event is rejected.
func (c *Core) Notification(ctx context.Context, accessToken string, req *openid4vci.NotificationRequest) error {
	if _, err := c.authorizedState(ctx, accessToken); err != nil {
		return err
	}
	if req.NotificationID == "" {
		return apierror.New(apierror.ErrInvalidNotificationRequest, "notification_id is required")
	}

	key := "notification:" + req.NotificationID
	v, err := c.StateStore.Get(ctx, key)
	if err != nil {
		return apierror.New(apierror.ErrInvalidNotificationID, "unknown or expired notification_id")
	}
	state, ok := v.(notificationState)
	if !ok {
		return apierror.New(apierror.ErrInvalidNotificationID, "unknown notification_id")
	}

	if state.Event != "" {
		if state.Event == req.Event {
			return nil
		}
		return apierror.New(apierror.ErrInvalidNotificationID, "notification_id already acknowledged with a different event")
	}

	state.Event = req.Event
	state.FirstSeenAt = time.Now()
	if err := c.StateStore.Put(ctx, key, state, state.ExpiresAt); err != nil {
		return apierror.New(apierror.ErrServerError, err.Error())
	}
	return nil
}
