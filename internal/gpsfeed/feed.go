package gpsfeed

import (
	"context"
	"math"
	"sync"
	"time"

	"backend-strideup/internal/logger"
	"backend-strideup/internal/tracking"

	"github.com/stratoberry/go-gpsd"
)

const defaultRetry = 30 * time.Second

// FromTPV converts a gpsd position report into a sample. Reports without at
// least a 2D fix are rejected. Accuracy is the larger of the longitude and
// latitude error estimates, when gpsd reports them.
func FromTPV(r *gpsd.TPVReport, now time.Time) (tracking.Sample, bool) {
	if r == nil || r.Mode < gpsd.Mode2D {
		return tracking.Sample{}, false
	}
	s := tracking.Sample{Lat: r.Lat, Lng: r.Lon, Timestamp: r.Time}
	if s.Timestamp.IsZero() {
		s.Timestamp = now
	}
	if acc := math.Max(r.Epx, r.Epy); acc > 0 {
		s.Accuracy = &acc
	}
	if r.Mode >= gpsd.Mode3D {
		alt := r.Alt
		s.ElevationM = &alt
	}
	if r.Speed > 0 {
		speed := r.Speed
		s.SpeedMps = &speed
	}
	if r.Track > 0 {
		heading := r.Track
		s.Heading = &heading
	}
	return s, true
}

// Feed measures the distance covered by a gpsd receiver.
type Feed struct {
	addr  string
	retry time.Duration
	log   logger.Logger
	now   func() time.Time

	mu  sync.Mutex
	acc tracking.Accumulator
}

func New(addr string, log logger.Logger) *Feed {
	if log == nil {
		log = logger.Noop()
	}
	return &Feed{addr: addr, retry: defaultRetry, log: log, now: time.Now}
}

// Handle feeds one sample into the accumulator.
func (f *Feed) Handle(ctx context.Context, s tracking.Sample) tracking.Outcome {
	f.mu.Lock()
	outcome := f.acc.Accept(s)
	total := f.acc.Total()
	f.mu.Unlock()

	f.log.Debug(ctx, "gps sample",
		logger.String("outcome", outcome.String()),
		logger.Float("total_distance_m", total))
	return outcome
}

func (f *Feed) Total() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acc.Total()
}

// Run watches gpsd until ctx is done, reconnecting after the retry period
// whenever the connection fails or ends.
func (f *Feed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		session, err := gpsd.Dial(f.addr)
		if err != nil {
			f.log.Warn(ctx, "gpsd unavailable", logger.String("addr", f.addr), logger.Err(err))
			if !f.wait(ctx) {
				return ctx.Err()
			}
			continue
		}

		session.AddFilter("TPV", func(r interface{}) {
			tpv, ok := r.(*gpsd.TPVReport)
			if !ok {
				return
			}
			if s, ok := FromTPV(tpv, f.now()); ok {
				f.Handle(ctx, s)
			}
		})
		done := session.Watch()
		f.log.Info(ctx, "watching gpsd", logger.String("addr", f.addr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			f.log.Warn(ctx, "gpsd stream ended", logger.Float("total_distance_m", f.Total()))
		}
		if !f.wait(ctx) {
			return ctx.Err()
		}
	}
}

func (f *Feed) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(f.retry):
		return true
	}
}
