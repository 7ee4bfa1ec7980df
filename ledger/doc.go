// Package ledger enforces a shared per-minute translation budget across all
// concurrent callers, in this process and in any other process pointed at
// the same store.
//
// Two ceilings are enforced simultaneously: tokens per minute and requests
// per minute. A reservation is all-or-nothing: it commits both increments
// atomically or leaves no trace. There is no explicit release; budget comes
// back purely by the minute window rolling over, with counter keys expiring
// shortly after.
//
//	store := ledger.NewRedisStore(redisClient, "")
//	led := ledger.New(store, ledger.Limits{
//	    TokensPerMinute:   90000,
//	    RequestsPerMinute: 60,
//	}, nil)
//
//	ok, err := led.TryReserve(ctx, 1200, 1)
//	if err != nil {
//	    // store unreachable: fail closed, do not call the service
//	}
//	if !ok {
//	    // budget saturated this minute; wait and retry
//	}
//
// RedisStore is the production store; MemoryStore provides the same
// semantics in-process for tests and single-instance deployments.
package ledger
