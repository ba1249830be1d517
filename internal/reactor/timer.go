package reactor

// Every is a convenience TimeProc wrapper that always reschedules itself
// intervalMs after each firing, regardless of what the wrapped function
// returns, the common case for periodic maintenance (active-expire cycles,
// resize bookkeeping, cron-style jobs).
func Every(intervalMs int64, fn func()) TimeProc {
	return func(id int64) int64 {
		fn()
		return intervalMs
	}
}

// Once wraps a TimeProc so it fires a single time then tombstones,
// regardless of how long fn takes.
func Once(fn func()) TimeProc {
	return func(id int64) int64 {
		fn()
		return Done
	}
}
