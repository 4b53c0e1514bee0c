package repository

import "time"

// queryObserver receives the duration of every repository query. The
// metrics service satisfies it; a nil observer disables timing.
type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

func observeQuery(obs queryObserver, label string, start time.Time) {
	if obs != nil {
		obs.ObserveDBQuery(label, time.Since(start))
	}
}
