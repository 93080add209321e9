package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
)

// NewCircuitBreaker wraps calls to an external collaborator. The breaker
// opens once three or more requests in the interval fail at a 60% ratio and
// half-opens after a minute.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}
