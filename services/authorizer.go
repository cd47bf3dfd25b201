//go:generate go run go.uber.org/mock/mockgen -source=authorizer.go -destination=../mocks/mock_authorizer.go -package=mocks
package services

import (
	"context"
	"fmt"
	"time"

	"pong-chat/contract"
	"pong-chat/errors"
)

// SendAuthorizer decides whether a message may be sent. identifiedUserID is
// the identity bound to the requesting connection, empty when there is none.
type SendAuthorizer interface {
	AuthorizeSend(ctx context.Context, identifiedUserID, senderID, receiverID string) error
}

// IdentifiedSenderAuthorizer requires an identified requester sending under its own identity.
type IdentifiedSenderAuthorizer struct{}

func (IdentifiedSenderAuthorizer) AuthorizeSend(_ context.Context, identifiedUserID, senderID, _ string) error {
	if identifiedUserID == "" {
		return errors.ErrNotIdentified
	}
	if identifiedUserID != senderID {
		return errors.ErrIdentityMismatch
	}
	return nil
}

// FriendshipAuthorizer only allows messages between accepted friends.
type FriendshipAuthorizer struct {
	directory contract.IUserDirectory
	timeout   time.Duration
}

func NewFriendshipAuthorizer(directory contract.IUserDirectory, timeout time.Duration) *FriendshipAuthorizer {
	return &FriendshipAuthorizer{directory: directory, timeout: timeout}
}

func (a *FriendshipAuthorizer) AuthorizeSend(ctx context.Context, _, senderID, receiverID string) error {
	if senderID == receiverID {
		return nil
	}
	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	friends, err := a.directory.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		if errors.Is(err, errors.ErrExternalLookup) {
			return err
		}
		return fmt.Errorf("%w: %v", errors.ErrExternalLookup, err)
	}
	if !friends {
		return errors.ErrNotFriends
	}
	return nil
}

// ChainAuthorizer applies authorizers in order and stops at the first refusal.
type ChainAuthorizer []SendAuthorizer

func (c ChainAuthorizer) AuthorizeSend(ctx context.Context, identifiedUserID, senderID, receiverID string) error {
	for _, authorizer := range c {
		if err := authorizer.AuthorizeSend(ctx, identifiedUserID, senderID, receiverID); err != nil {
			return err
		}
	}
	return nil
}
