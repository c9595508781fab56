package tracking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"backend-strideup/internal/db"
	"backend-strideup/internal/logger"
	"backend-strideup/internal/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotActive = errors.New("session not active")
)

const sessionColumns = `id, user_id, activity_type, status, started_at, ended_at,
	COALESCE(total_distance_m,0), COALESCE(elevation_gain_m,0), COALESCE(elevation_loss_m,0), COALESCE(calories,0),
	hide_start_end, privacy_zone_radius_m,
	ST_X(masked_start::geometry), ST_Y(masked_start::geometry), ST_X(masked_end::geometry), ST_Y(masked_end::geometry)`

// Publisher pushes live updates for a session.
type Publisher interface {
	Publish(sessionID, eventType string, payload any)
}

// DistanceUpdate is broadcast after every processed sample.
type DistanceUpdate struct {
	TotalDistanceM float64 `json:"total_distance_m"`
	Outcome        string  `json:"outcome"`
	Point          *Sample `json:"point,omitempty"`
}

type liveSession struct {
	mu      sync.Mutex
	acc     *Accumulator
	touched time.Time
}

type Service struct {
	db      db.Querier
	hub     Publisher
	metrics *metrics.Collector
	log     logger.Logger
	now     func() time.Time
	random  func() float64

	mu   sync.Mutex
	live map[string]*liveSession
}

func NewService(db db.Querier, hub Publisher, m *metrics.Collector, log logger.Logger) *Service {
	if log == nil {
		log = logger.Noop()
	}
	return &Service{
		db:      db,
		hub:     hub,
		metrics: m,
		log:     log,
		now:     time.Now,
		random:  rand.Float64,
		live:    map[string]*liveSession{},
	}
}

func (s *Service) StartSession(ctx context.Context, input Session) (Session, error) {
	input.ID = uuid.NewString()
	if input.StartedAt.IsZero() {
		input.StartedAt = s.now()
	}
	if input.ActivityType == "" {
		input.ActivityType = "run"
	}
	if input.PrivacyZoneRadiusM <= 0 {
		input.PrivacyZoneRadiusM = DefaultPrivacyZoneM
	}
	input.Status = StatusInProgress
	input.MaskedStart, input.MaskedEnd = nil, nil

	row := s.db.QueryRow(ctx, `
		INSERT INTO track_sessions (id, user_id, activity_type, status, started_at, hide_start_end, privacy_zone_radius_m)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING started_at
	`, input.ID, input.UserID, input.ActivityType, input.Status, input.StartedAt, input.HideStartEnd, input.PrivacyZoneRadiusM)
	if err := row.Scan(&input.StartedAt); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	s.live[input.ID] = &liveSession{acc: &Accumulator{}, touched: s.now()}
	s.setLiveGauge()
	s.mu.Unlock()
	return input, nil
}

func (s *Service) Session(ctx context.Context, sessionID string) (Session, error) {
	return scanSession(s.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM track_sessions WHERE id=$1`, sessionID))
}

// CurrentSession returns the latest session of a user that is still in
// progress or paused.
func (s *Service) CurrentSession(ctx context.Context, userID string) (Session, error) {
	return scanSession(s.db.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM track_sessions
		WHERE user_id=$1 AND status IN ($2,$3)
		ORDER BY started_at DESC
		LIMIT 1
	`, userID, StatusInProgress, StatusPaused))
}

func scanSession(row pgx.Row) (Session, error) {
	var (
		session            Session
		endedAt            *time.Time
		startLng, startLat *float64
		endLng, endLat     *float64
	)
	err := row.Scan(&session.ID, &session.UserID, &session.ActivityType, &session.Status, &session.StartedAt, &endedAt,
		&session.TotalDistanceM, &session.ElevationGainM, &session.ElevationLossM, &session.Calories,
		&session.HideStartEnd, &session.PrivacyZoneRadiusM,
		&startLng, &startLat, &endLng, &endLat)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if endedAt != nil {
		session.EndedAt = *endedAt
	}
	if startLng != nil && startLat != nil {
		session.MaskedStart = &orb.Point{*startLng, *startLat}
	}
	if endLng != nil && endLat != nil {
		session.MaskedEnd = &orb.Point{*endLng, *endLat}
	}
	return session, nil
}

// AddPoint stores a sample and feeds it to the session's accumulator. Every
// sample is stored, including the ones the accumulator filters out, so
// waypoint progress can be evaluated against the full history. The reported
// total is the one reached by this sample.
func (s *Service) AddPoint(ctx context.Context, sessionID string, input Sample) (PointResult, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return PointResult{}, err
	}
	if session.Status != StatusInProgress {
		return PointResult{}, ErrSessionNotActive
	}
	if input.Timestamp.IsZero() {
		input.Timestamp = s.now()
	}

	live, err := s.liveSession(ctx, sessionID)
	if err != nil {
		return PointResult{}, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()

	point := TrackPoint{SessionID: sessionID, Sample: input}
	row := s.db.QueryRow(ctx, `
		INSERT INTO track_points (session_id, location, elevation_m, accuracy_m, speed_mps, heading, recorded_at)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2,$3), 4326)::geography, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, sessionID, input.Lng, input.Lat, input.ElevationM, input.Accuracy, input.SpeedMps, input.Heading, input.Timestamp)
	if err := row.Scan(&point.ID, &point.CreatedAt); err != nil {
		return PointResult{}, err
	}

	outcome := live.acc.Accept(input)
	live.touched = s.now()
	total := live.acc.Total()

	if outcome == OutcomeCounted {
		if _, err := s.db.Exec(ctx, `UPDATE track_sessions SET total_distance_m=$2 WHERE id=$1`, sessionID, total); err != nil {
			return PointResult{}, fmt.Errorf("update session distance: %w", err)
		}
	}

	s.metrics.ObserveSample(outcome.String())
	s.log.Debug(ctx, "sample processed",
		logger.String("session_id", sessionID),
		logger.String("outcome", outcome.String()),
		logger.Float("total_distance_m", total))
	if s.hub != nil {
		s.hub.Publish(sessionID, "distance", DistanceUpdate{TotalDistanceM: total, Outcome: outcome.String(), Point: &input})
	}
	return PointResult{Point: point, Outcome: outcome, TotalDistanceM: total}, nil
}

// liveSession returns the in-memory accumulator of a session, rebuilding it
// from stored points when it was evicted or the process restarted.
func (s *Service) liveSession(ctx context.Context, sessionID string) (*liveSession, error) {
	s.mu.Lock()
	live, ok := s.live[sessionID]
	s.mu.Unlock()
	if ok {
		return live, nil
	}

	samples, err := s.Samples(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("rebuild accumulator: %w", err)
	}
	rebuilt := &liveSession{acc: Replay(samples), touched: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if live, ok := s.live[sessionID]; ok {
		return live, nil
	}
	s.live[sessionID] = rebuilt
	s.setLiveGauge()
	s.log.Info(ctx, "accumulator rebuilt", logger.String("session_id", sessionID), logger.Int("points", len(samples)))
	return rebuilt, nil
}

// LiveDistance reports the running total of a session held in memory.
func (s *Service) LiveDistance(sessionID string) (float64, bool) {
	s.mu.Lock()
	live, ok := s.live[sessionID]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	live.mu.Lock()
	defer live.mu.Unlock()
	return live.acc.Total(), true
}

func (s *Service) PauseSession(ctx context.Context, sessionID string) error {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != StatusInProgress {
		return ErrSessionNotActive
	}
	if _, err := s.db.Exec(ctx, `INSERT INTO session_pauses (session_id, paused_at) VALUES ($1,$2)`, sessionID, s.now()); err != nil {
		return err
	}
	return s.setStatus(ctx, sessionID, StatusPaused)
}

func (s *Service) ResumeSession(ctx context.Context, sessionID string) error {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != StatusPaused {
		return ErrSessionNotActive
	}
	if err := s.closePause(ctx, sessionID); err != nil {
		return err
	}
	return s.setStatus(ctx, sessionID, StatusInProgress)
}

// CompleteSession finalizes statistics from the stored track and releases
// the live accumulator.
func (s *Service) CompleteSession(ctx context.Context, sessionID string) (Summary, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	switch session.Status {
	case StatusInProgress:
	case StatusPaused:
		if err := s.closePause(ctx, sessionID); err != nil {
			return Summary{}, err
		}
	default:
		return Summary{}, ErrSessionNotActive
	}

	samples, err := s.Samples(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	pauses, err := s.Pauses(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}

	now := s.now()
	session.Status = StatusCompleted
	session.EndedAt = now
	session.TotalDistanceM = Replay(samples).Total()
	session.MaskedStart, session.MaskedEnd = nil, nil
	var maskedStart, maskedEnd any
	if session.HideStartEnd {
		if start, end, ok := MaskEndpoints(samples, float64(session.PrivacyZoneRadiusM), s.random); ok {
			session.MaskedStart, session.MaskedEnd = &start, &end
			maskedStart, maskedEnd = wkt.MarshalString(start), wkt.MarshalString(end)
		}
	}
	summary := Summarize(session, samples, pauses)

	_, err = s.db.Exec(ctx, `
		UPDATE track_sessions
		SET status=$2, ended_at=$3, total_distance_m=$4, elevation_gain_m=$5, elevation_loss_m=$6, calories=$7,
		    masked_start=ST_GeogFromText($8), masked_end=ST_GeogFromText($9)
		WHERE id=$1
	`, sessionID, StatusCompleted, now, summary.DistanceM, summary.ElevationGainM, summary.ElevationLossM, summary.Calories,
		maskedStart, maskedEnd)
	if err != nil {
		return Summary{}, err
	}

	s.drop(sessionID)
	s.log.Info(ctx, "session completed", logger.String("session_id", sessionID), logger.Float("distance_m", summary.DistanceM))
	return summary, nil
}

// DiscardSession cancels a session. Its accumulation state is thrown away.
func (s *Service) DiscardSession(ctx context.Context, sessionID string) error {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != StatusInProgress && session.Status != StatusPaused {
		return ErrSessionNotActive
	}
	if _, err := s.db.Exec(ctx, `UPDATE track_sessions SET status=$2, ended_at=$3 WHERE id=$1`, sessionID, StatusDiscarded, s.now()); err != nil {
		return err
	}
	s.drop(sessionID)
	return nil
}

func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	samples, err := s.Samples(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	pauses, err := s.Pauses(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(session, samples, pauses), nil
}

func (s *Service) Points(ctx context.Context, sessionID string) ([]TrackPoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, ST_Y(location::geometry), ST_X(location::geometry), elevation_m, accuracy_m, speed_mps, heading, recorded_at, created_at
		FROM track_points WHERE session_id=$1
		ORDER BY recorded_at, id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []TrackPoint
	for rows.Next() {
		var p TrackPoint
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Lat, &p.Lng, &p.ElevationM, &p.Accuracy, &p.SpeedMps, &p.Heading, &p.Timestamp, &p.CreatedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Samples returns the full ordered track of a session.
func (s *Service) Samples(ctx context.Context, sessionID string) ([]Sample, error) {
	points, err := s.Points(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	samples := make([]Sample, len(points))
	for i, p := range points {
		samples[i] = p.Sample
	}
	return samples, nil
}

func (s *Service) Pauses(ctx context.Context, sessionID string) ([]Pause, error) {
	rows, err := s.db.Query(ctx, `
		SELECT paused_at, resumed_at FROM session_pauses WHERE session_id=$1 ORDER BY paused_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pauses []Pause
	for rows.Next() {
		var (
			p         Pause
			resumedAt *time.Time
		)
		if err := rows.Scan(&p.PausedAt, &resumedAt); err != nil {
			return nil, err
		}
		if resumedAt != nil {
			p.ResumedAt = *resumedAt
		}
		pauses = append(pauses, p)
	}
	return pauses, rows.Err()
}

// Route renders the session track. Sessions that hide their start and end
// get a trimmed line and carry their masked endpoints instead.
func (s *Service) Route(ctx context.Context, sessionID string) (*geojson.Feature, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	samples, err := s.Samples(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	f := RouteFeature(sessionID, samples, session.HideStartEnd)
	if session.HideStartEnd {
		if session.MaskedStart != nil {
			f.Properties["masked_start"] = *session.MaskedStart
		}
		if session.MaskedEnd != nil {
			f.Properties["masked_end"] = *session.MaskedEnd
		}
	}
	return f, nil
}

// SweepIdle evicts accumulators untouched for longer than ttl. Evicted
// sessions are rebuilt from storage on their next sample.
func (s *Service) SweepIdle(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, live := range s.live {
		live.mu.Lock()
		idle := live.touched.Before(cutoff)
		live.mu.Unlock()
		if idle {
			delete(s.live, id)
			evicted++
		}
	}
	s.setLiveGauge()
	return evicted
}

func (s *Service) setStatus(ctx context.Context, sessionID, status string) error {
	_, err := s.db.Exec(ctx, `UPDATE track_sessions SET status=$2 WHERE id=$1`, sessionID, status)
	return err
}

func (s *Service) closePause(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE session_pauses SET resumed_at=$2 WHERE session_id=$1 AND resumed_at IS NULL
	`, sessionID, s.now())
	return err
}

func (s *Service) drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if live, ok := s.live[sessionID]; ok {
		live.mu.Lock()
		live.acc.Reset()
		live.mu.Unlock()
		delete(s.live, sessionID)
	}
	s.setLiveGauge()
}

// setLiveGauge must be called with s.mu held.
func (s *Service) setLiveGauge() {
	s.metrics.SetLiveSessions(len(s.live))
}
