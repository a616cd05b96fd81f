package sender

import (
	"context"

	appErrors "github.com/unclebandit/outreach/internal/errors"
	"github.com/unclebandit/outreach/internal/model"
)

// CodeSenderUnavailable is recorded when the sender account cannot send in
// its current session state.
const CodeSenderUnavailable = "sender_unavailable"

// AccountSource looks up the persisted state of a sender account.
type AccountSource interface {
	GetByID(ctx context.Context, id string) (*model.SenderAccount, error)
}

// StateGate holds back deliveries through sender accounts that are not
// connected. Sender ids without a stored account go straight to Next.
type StateGate struct {
	Next     Sender
	Accounts AccountSource
}

func (g *StateGate) Send(ctx context.Context, d Delivery) error {
	acct, err := g.Accounts.GetByID(ctx, d.SenderID)
	switch {
	case appErrors.IsNotFound(err):
	case err != nil:
		return err
	case !acct.State.CanSend():
		return Failf(CodeSenderUnavailable, "sender %s is %s", acct.ID, acct.State)
	}
	return g.Next.Send(ctx, d)
}

var _ Sender = (*StateGate)(nil)
