// Package warmup primes cache entries in parallel before traffic arrives.
//
// A deploy or a full cache flush leaves every storefront key cold, and the
// first visitors would each pay for a producer run. The warmer runs a fixed
// list of jobs through a bounded worker pool instead:
//
//	w := warmup.New(warmup.DefaultConfig(), logger)
//	report := w.Run(ctx, svc.WarmupJobs())
//	if report.Failed > 0 { ... }
//
// The warmer:
//   - Spawns a worker pool (default 4 workers)
//   - Gives each job its own timeout
//   - Keeps going when a job fails and reports partial results
//   - Stops handing out jobs once ctx is cancelled
package warmup
