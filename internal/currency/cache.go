package currency

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/shopspring/decimal"

	"homeledger/internal/models"
)

// RateCache stores historical exchange rates keyed by currency pair and
// date. Rates for past dates never change, so entries live forever; the
// cache is a pure performance optimization, never a correctness
// dependency, and an empty cache after restart is fine.
type RateCache interface {
	Get(from, to models.Currency, date time.Time) (decimal.Decimal, bool)
	Put(from, to models.Currency, date time.Time, rate decimal.Decimal)
}

func cacheKey(from, to models.Currency, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", from, to, date.Format("2006-01-02"))
}

// ristrettoCache is the production RateCache.
type ristrettoCache struct {
	cache *ristretto.Cache
}

// NewRistrettoCache creates a RateCache backed by ristretto.
func NewRistrettoCache() (RateCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate cache: %w", err)
	}
	return &ristrettoCache{cache: c}, nil
}

func (r *ristrettoCache) Get(from, to models.Currency, date time.Time) (decimal.Decimal, bool) {
	v, ok := r.cache.Get(cacheKey(from, to, date))
	if !ok {
		return decimal.Zero, false
	}
	rate, ok := v.(decimal.Decimal)
	return rate, ok
}

func (r *ristrettoCache) Put(from, to models.Currency, date time.Time, rate decimal.Decimal) {
	r.cache.Set(cacheKey(from, to, date), rate, 1)
	// Ristretto writes are async; Wait makes the entry immediately
	// visible so back-to-back normalizations of the same date hit.
	r.cache.Wait()
}

// MapCache is a plain mutex-guarded RateCache for tests and single-node
// deployments that do not want ristretto's admission policy.
type MapCache struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

// NewMapCache creates an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{rates: make(map[string]decimal.Decimal)}
}

func (m *MapCache) Get(from, to models.Currency, date time.Time) (decimal.Decimal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rate, ok := m.rates[cacheKey(from, to, date)]
	return rate, ok
}

func (m *MapCache) Put(from, to models.Currency, date time.Time, rate decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[cacheKey(from, to, date)] = rate
}

// Len returns the number of cached rates.
func (m *MapCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rates)
}
