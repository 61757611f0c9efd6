package fetch

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// DefaultTripThreshold is the number of consecutive transport failures that
// opens a host's breaker.
const DefaultTripThreshold = 5

// Breakers holds one circuit breaker per host.
type Breakers struct {
	threshold int64
	breakers  map[string]*circuit.Breaker
	mu        sync.RWMutex
}

// NewBreakers returns breakers tripping after DefaultTripThreshold failures.
func NewBreakers() *Breakers {
	return NewBreakersWithThreshold(DefaultTripThreshold)
}

// NewBreakersWithThreshold returns breakers tripping after n consecutive failures.
func NewBreakersWithThreshold(n int64) *Breakers {
	return &Breakers{
		threshold: n,
		breakers:  make(map[string]*circuit.Breaker),
	}
}

func (b *Breakers) get(host string) *circuit.Breaker {
	b.mu.RLock()
	breaker, exists := b.breakers[host]
	b.mu.RUnlock()

	if exists {
		return breaker
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if breaker, exists := b.breakers[host]; exists {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(b.threshold),
	})
	b.breakers[host] = breaker
	return breaker
}

// Do runs fn through the host's breaker. An open breaker yields
// ErrUpstreamDown without calling fn.
func (b *Breakers) Do(host string, fn func() error) error {
	breaker := b.get(host)
	if !breaker.Ready() {
		return fmt.Errorf("circuit breaker open for %s: %w", host, ErrUpstreamDown)
	}
	return breaker.Call(fn, 0)
}

// State reports "open" or "closed" for every host seen so far.
func (b *Breakers) State() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	states := make(map[string]string)
	for host, breaker := range b.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

// Open lists hosts whose breaker is currently open.
func (b *Breakers) Open() []string {
	var hosts []string
	for host, state := range b.State() {
		if state == "open" {
			hosts = append(hosts, host)
		}
	}
	sort.Strings(hosts)
	return hosts
}
