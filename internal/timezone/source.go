package timezone

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// StoreZoneFetcher returns the IANA zone configured for a store on the publishing platform
type StoreZoneFetcher interface {
	StoreTimezone(ctx context.Context, storeID string) (string, error)
}

// ZoneSource resolves schedules in a store's own zone, caching zones per store.
// When the platform cannot provide a zone it falls back to UTC and flags the result.
type ZoneSource struct {
	fetcher StoreZoneFetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedZone
}

type cachedZone struct {
	name      string
	fetchedAt time.Time
}

// NewZoneSource creates a zone source. fetcher may be nil when no platform is configured.
func NewZoneSource(fetcher StoreZoneFetcher, ttl time.Duration, logger *slog.Logger) *ZoneSource {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoneSource{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		cache:   make(map[string]cachedZone),
	}
}

// WithClock overrides the clock, used by tests
func (s *ZoneSource) WithClock(now func() time.Time) *ZoneSource {
	s.now = now
	return s
}

// StoreZone returns the store's IANA zone, or FallbackZone with fallback=true
func (s *ZoneSource) StoreZone(ctx context.Context, storeID string) (string, bool) {
	s.mu.Lock()
	if c, ok := s.cache[storeID]; ok && s.now().Sub(c.fetchedAt) < s.ttl {
		s.mu.Unlock()
		return c.name, false
	}
	s.mu.Unlock()

	if s.fetcher == nil {
		s.logger.Warn("no publishing platform configured, using UTC for store schedule", "store_id", storeID)
		return FallbackZone, true
	}

	name, err := s.fetcher.StoreTimezone(ctx, storeID)
	if err == nil {
		if _, lerr := LoadLocation(name); lerr != nil {
			err = lerr
		}
	}
	if err != nil {
		s.logger.Warn("store timezone unavailable, using UTC", "store_id", storeID, "error", err)
		return FallbackZone, true
	}

	s.mu.Lock()
	s.cache[storeID] = cachedZone{name: name, fetchedAt: s.now()}
	s.mu.Unlock()

	return name, false
}

// ResolveForStore resolves a local schedule in the store's zone. Empty date and time
// select the default target (tomorrow at DefaultLocalTime); an empty time alone uses DefaultLocalTime.
func (s *ZoneSource) ResolveForStore(ctx context.Context, storeID, localDate, localTime string) (Resolution, error) {
	zone, fallback := s.StoreZone(ctx, storeID)
	res, err := resolveSpec(localDate, localTime, zone, s.now())
	if err != nil {
		return Resolution{}, err
	}
	if fallback {
		res.Fallback = true
		res.Warning = fallbackWarning(storeID)
	}
	return res, nil
}

// ResolveInZone resolves a local schedule in an explicit zone, with the same defaults as ResolveForStore
func (s *ZoneSource) ResolveInZone(localDate, localTime, ianaTimezone string) (Resolution, error) {
	return resolveSpec(localDate, localTime, ianaTimezone, s.now())
}

func resolveSpec(localDate, localTime, zone string, now time.Time) (Resolution, error) {
	localDate = strings.TrimSpace(localDate)
	localTime = strings.TrimSpace(localTime)

	if localDate == "" {
		spec, instant, err := GetTomorrow(zone, now)
		if err != nil {
			return Resolution{}, err
		}
		if localTime != "" {
			instant, err = Resolve(spec.LocalDate, localTime, zone)
			if err != nil {
				return Resolution{}, err
			}
			spec.LocalTime = localTime
		}
		return Resolution{Spec: spec, Instant: instant}, nil
	}

	if localTime == "" {
		localTime = DefaultLocalTime
	}
	instant, err := Resolve(localDate, localTime, zone)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{
		Spec:    Spec{LocalDate: localDate, LocalTime: localTime, Timezone: zone},
		Instant: instant,
	}, nil
}

func fallbackWarning(storeID string) string {
	return fmt.Sprintf("store %s timezone unavailable; schedule resolved in UTC and may be shifted from the intended local time", storeID)
}
