package issuance

import (
	"context"
	"testing"
	"time"

	"vccore/pkg/openid4vci"
	"vccore/pkg/vcmodel"
)

func putAuthorizedToken(t *testing.T, c *Core, token string) {
	t.Helper()
	state := &vcmodel.FlowState{
		ExpiresAt: time.Now().Add(time.Minute),
		SubjectID: "subject-1",
		Stage:     vcmodel.StageAuthorized,
	}
	if err := c.StateStore.Put(context.Background(), token, state, state.ExpiresAt); err != nil {
		t.Fatalf("seed access token: %v", err)
	}
}

func TestNotification_AcknowledgeThenReplaySameEvent(t *testing.T) {
	c, _ := newTestCore(t)
	putAuthorizedToken(t, c, "token-1")
	if err := c.putNotification(context.Background(), "notif-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("putNotification: %v", err)
	}

	req := &openid4vci.NotificationRequest{NotificationID: "notif-1", Event: "credential_accepted"}
	if err := c.Notification(context.Background(), "token-1", req); err != nil {
		t.Fatalf("first notification: %v", err)
	}
	// A retried delivery report carrying the identical event must succeed,
	// not fail as an unknown/already-redeemed notification_id.
	if err := c.Notification(context.Background(), "token-1", req); err != nil {
		t.Fatalf("replay with identical event should succeed: %v", err)
	}
}

func TestNotification_ReplayWithDifferentEventFails(t *testing.T) {
	c, _ := newTestCore(t)
	putAuthorizedToken(t, c, "token-2")
	if err := c.putNotification(context.Background(), "notif-2", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("putNotification: %v", err)
	}

	first := &openid4vci.NotificationRequest{NotificationID: "notif-2", Event: "credential_accepted"}
	if err := c.Notification(context.Background(), "token-2", first); err != nil {
		t.Fatalf("first notification: %v", err)
	}

	second := &openid4vci.NotificationRequest{NotificationID: "notif-2", Event: "credential_failure"}
	if err := c.Notification(context.Background(), "token-2", second); err == nil {
		t.Fatal("expected a conflicting replayed event to be rejected")
	}
}

func TestNotification_UnknownID(t *testing.T) {
	c, _ := newTestCore(t)
	putAuthorizedToken(t, c, "token-3")

	req := &openid4vci.NotificationRequest{NotificationID: "does-not-exist", Event: "credential_accepted"}
	if err := c.Notification(context.Background(), "token-3", req); err == nil {
		t.Fatal("expected an error for an unknown notification_id")
	}
}
