package workers

import (
	"context"
	"log"
	"time"

	"ariadne/config"
	"ariadne/reset"
)

// RunDeliveryWorker is the notification worker's main loop: one sequential
// fetch-claim-send cycle per tick, plus a periodic expiry sweep as
// housekeeping (redemption enforces expiry on its own). Blocks until ctx is
// cancelled. Safe to run in more than one instance thanks to the claim
// discipline in the dispatcher.
func RunDeliveryWorker(ctx context.Context, store *reset.Store, dispatcher *reset.Dispatcher, cfg config.Configuration) {
	interval := time.Duration(cfg.Reset.PollSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("delivery worker: started, interval=%s batch=%d", interval, cfg.Reset.BatchLimit)

	cycles := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("delivery worker: stopping")
			return
		case <-ticker.C:
		}

		delivered, err := dispatcher.RunCycle(ctx)
		if err != nil {
			log.Printf("delivery worker: cycle error: %v", err)
			continue
		}
		if delivered > 0 {
			log.Printf("delivery worker: delivered %d reset link(s)", delivered)
		}

		cycles++
		if cycles%cfg.Reset.SweepEveryCycles == 0 {
			swept, err := store.MarkExpiredSweep(time.Now())
			if err != nil {
				log.Printf("delivery worker: sweep error: %v", err)
			} else if swept > 0 {
				log.Printf("delivery worker: swept %d expired token(s)", swept)
			}
		}
	}
}
