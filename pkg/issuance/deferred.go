package issuance

import (
	"context"
	"time"

	"vccore/pkg/apierror"
	"vccore/pkg/openid4vci"
)

// DeferredCredential implements §4.1 op 6: poll a parked transaction_id. If
// the subject's back office still hasn't produced the dataset, the wallet is
// told to retry no sooner than PollInterval seconds; once the dataset is
// ready the credential is minted and the transaction purged so a retried
// poll after a crash can't mint twice.
func (c *Core) DeferredCredential(ctx context.Context, accessToken string, req *openid4vci.DeferredCredentialRequest) (*openid4vci.CredentialResponse, error) {
	if _, err := c.authorizedState(ctx, accessToken); err != nil {
		return nil, err
	}
	if req.TransactionID == "" {
		return nil, apierror.New(apierror.ErrInvalidTransactionID, "transaction_id is required")
	}

	v, err := c.StateStore.Get(ctx, req.TransactionID)
	if err != nil {
		return nil, apierror.New(apierror.ErrInvalidTransactionID, "unknown or expired transaction_id")
	}
	dr, ok := v.(deferredRequest)
	if !ok || dr.State.Expired(time.Now()) {
		return nil, apierror.New(apierror.ErrInvalidTransactionID, "transaction_id is not redeemable")
	}

	claims, pending, err := c.Subject.Dataset(ctx, dr.State.SubjectID, dr.CredentialIdentifier)
	if err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}
	if pending {
		e := apierror.New(apierror.ErrIssuancePending, "credential is still being prepared")
		e.Interval = c.pollInterval()
		return nil, e
	}

	publicKey, err := dr.HolderKey()
	if err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	// purge before minting: a retried poll after a crash mid-mint must not
	// be able to redeem the same transaction a second time.
	if err := c.StateStore.Purge(ctx, req.TransactionID); err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	credential, err := c.mintCredential(ctx, dr.ConfigID, dr.State.SubjectID, claims, publicKey)
	if err != nil {
		return nil, err
	}

	notificationID, err := randomURLSafeToken(16)
	if err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}
	notifExpiry := time.Now().Add(DefaultAccessTokenTTL)
	if err := c.putNotification(ctx, notificationID, notifExpiry); err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	return &openid4vci.CredentialResponse{
		Credentials:    []openid4vci.Credential{{Credential: credential}},
		NotificationID: notificationID,
	}, nil
}
