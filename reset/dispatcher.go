package reset

import (
	"context"
	"errors"
	"log"
	"time"

	"ariadne/models"
)

// Channel delivers one reset token to the user. Implementations wrap
// unrecoverable failures with ErrPermanentSend; anything else is treated as
// transient and retried on a later cycle.
type Channel interface {
	Send(ctx context.Context, token models.ResetToken) error
}

// Dispatcher runs one fetch-claim-send pass per cycle. The claim discipline
// (see Store.ClaimForDelivery) makes concurrent worker instances safe: a
// token is handed to the external channel by at most one of them.
type Dispatcher struct {
	store       *Store
	channels    map[string]Channel
	batchLimit  int
	maxAttempts int
	now         func() time.Time
}

func NewDispatcher(store *Store, channels map[string]Channel, batchLimit, maxAttempts int) *Dispatcher {
	if batchLimit <= 0 {
		batchLimit = 25
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Dispatcher{
		store:       store,
		channels:    channels,
		batchLimit:  batchLimit,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// SetNow overrides the clock (tests).
func (d *Dispatcher) SetNow(now func() time.Time) {
	d.now = now
}

// RunCycle processes one batch of pending tokens and returns how many were
// delivered. A send failure never drops a token: transient failures release
// the claim for a retry, permanent ones leave the row flagged for operators.
func (d *Dispatcher) RunCycle(ctx context.Context) (int, error) {
	tokens, err := d.store.FetchPending(d.batchLimit, d.maxAttempts, d.now())
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, t := range tokens {
		claimed, err := d.store.ClaimForDelivery(t.ID, d.now())
		if err != nil {
			return delivered, err
		}
		if !claimed {
			// another worker instance got there first
			continue
		}

		ch := d.channels[t.Channel]
		if ch == nil {
			log.Printf("delivery worker: no channel %q for token account=%d", t.Channel, t.AccountID)
			if err := d.store.MarkDeliveryFailed(t.ID, d.now()); err != nil {
				return delivered, err
			}
			continue
		}

		if sendErr := ch.Send(ctx, t); sendErr != nil {
			if errors.Is(sendErr, ErrPermanentSend) {
				log.Printf("delivery worker: permanent send failure account=%d channel=%s err=%v", t.AccountID, t.Channel, sendErr)
				if err := d.store.MarkDeliveryFailed(t.ID, d.now()); err != nil {
					return delivered, err
				}
			} else {
				log.Printf("delivery worker: send failed, will retry account=%d channel=%s attempt=%d err=%v", t.AccountID, t.Channel, t.SendAttempts+1, sendErr)
				if err := d.store.ReleaseClaim(t.ID); err != nil {
					return delivered, err
				}
			}
			continue
		}

		if err := d.store.ClearLink(t.ID); err != nil {
			// delivered either way; the wipe is best effort
			log.Printf("delivery worker: clear link failed id=%s err=%v", t.ID, err)
		}
		delivered++
	}

	return delivered, nil
}
