package broker

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"lia_trading/internal/domain"
	"lia_trading/pkg/quant"
)

const simBarsKept = 256

// SimFeed synthesizes market data for paper sessions: a random walk per
// symbol, closing one bar per interval of wall time. It implements the
// same gateway contract the bridge does, so the rest of the pipeline
// cannot tell the difference.
type SimFeed struct {
	timeframe string
	interval  time.Duration

	mu     sync.Mutex
	rng    *rand.Rand
	series map[string]*simSeries
}

type simSeries struct {
	price    float64
	spread   float64
	step     float64
	bars     []domain.Bar
	nextOpen time.Time
}

func NewSimFeed(symbols []string, timeframe string, interval time.Duration) *SimFeed {
	f := &SimFeed{
		timeframe: timeframe,
		interval:  interval,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		series:    make(map[string]*simSeries, len(symbols)),
	}
	start := time.Now().Truncate(interval)
	for _, symbol := range symbols {
		pip := quant.PipSize(symbol)
		price := 1.1
		if strings.Contains(symbol, "JPY") {
			price = 150.0
		}
		f.series[symbol] = &simSeries{
			price:    price,
			spread:   2 * pip / 10, // two points
			step:     5 * pip,
			nextOpen: start,
		}
	}
	return f
}

// advance synthesizes every bar whose interval has fully elapsed.
// Callers hold f.mu.
func (f *SimFeed) advance(s *simSeries, now time.Time) {
	for !s.nextOpen.Add(f.interval).After(now) {
		open := s.price
		high, low := open, open
		for i := 0; i < 4; i++ {
			s.price += (f.rng.Float64() - 0.5) * s.step
			if s.price > high {
				high = s.price
			}
			if s.price < low {
				low = s.price
			}
		}
		s.bars = append(s.bars, domain.Bar{
			Time:       s.nextOpen,
			Open:       open,
			High:       high,
			Low:        low,
			Close:      s.price,
			TickVolume: int64(f.rng.Intn(400) + 100),
		})
		if len(s.bars) > simBarsKept {
			s.bars = s.bars[len(s.bars)-simBarsKept:]
		}
		s.nextOpen = s.nextOpen.Add(f.interval)
	}
}

func (f *SimFeed) lookup(symbol, timeframe string) (*simSeries, error) {
	if timeframe != f.timeframe {
		return nil, ErrUnavailable
	}
	s, ok := f.series[symbol]
	if !ok {
		return nil, ErrUnavailable
	}
	f.advance(s, time.Now())
	return s, nil
}

func (f *SimFeed) LatestClosedBar(ctx context.Context, symbol, timeframe string) (domain.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.lookup(symbol, timeframe)
	if err != nil {
		return domain.Bar{}, err
	}
	if len(s.bars) == 0 {
		return domain.Bar{}, ErrUnavailable
	}
	return s.bars[len(s.bars)-1], nil
}

func (f *SimFeed) LatestClosedBars(ctx context.Context, symbol, timeframe string, count int) ([]domain.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.lookup(symbol, timeframe)
	if err != nil {
		return nil, err
	}
	if len(s.bars) == 0 || count < 1 {
		return nil, ErrUnavailable
	}
	if count > len(s.bars) {
		count = len(s.bars)
	}
	out := make([]domain.Bar, count)
	copy(out, s.bars[len(s.bars)-count:])
	return out, nil
}

func (f *SimFeed) LatestTick(ctx context.Context, symbol string) (domain.Tick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.series[symbol]
	if !ok {
		return domain.Tick{}, ErrUnavailable
	}
	f.advance(s, time.Now())
	return domain.Tick{
		Bid:  s.price,
		Ask:  s.price + s.spread,
		Time: time.Now(),
	}, nil
}
