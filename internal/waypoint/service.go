package waypoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend-strideup/internal/db"
	"backend-strideup/internal/logger"
	"backend-strideup/internal/metrics"
	"backend-strideup/internal/tracking"

	"github.com/google/uuid"
)

var ErrRouteNotFound = errors.New("route not found")

// TrackSource supplies the full ordered track of a session.
type TrackSource interface {
	Samples(ctx context.Context, sessionID string) ([]tracking.Sample, error)
}

// DraftStore hands a route over from the route builder to challenge
// creation. Take consumes the draft and Restore hands it back when the
// claim could not be completed.
type DraftStore interface {
	Put(ctx context.Context, payload []byte) (string, error)
	Take(ctx context.Context, id string) ([]byte, error)
	Restore(ctx context.Context, id string, payload []byte) error
}

type Service struct {
	db      db.Querier
	tracks  TrackSource
	drafts  DraftStore
	hub     tracking.Publisher
	metrics *metrics.Collector
	log     logger.Logger
}

func NewService(db db.Querier, tracks TrackSource, drafts DraftStore, hub tracking.Publisher, m *metrics.Collector, log logger.Logger) *Service {
	if log == nil {
		log = logger.Noop()
	}
	return &Service{db: db, tracks: tracks, drafts: drafts, hub: hub, metrics: m, log: log}
}

// SaveRoute validates and replaces the route of a challenge.
func (s *Service) SaveRoute(ctx context.Context, challengeID string, waypoints []Waypoint) ([]Waypoint, error) {
	route, err := ValidateRoute(waypoints)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin route tx: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM route_waypoints WHERE challenge_id=$1`, challengeID); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	for i := range route {
		wp := &route[i]
		wp.ID = uuid.NewString()
		wp.ChallengeID = challengeID
		_, err := tx.Exec(ctx, `
			INSERT INTO route_waypoints (id, challenge_id, position, kind, lat, lng, radius_m, name)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, wp.ID, challengeID, wp.Order, string(wp.Kind), wp.Lat, wp.Lng, wp.RadiusM, wp.Name)
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit route: %w", err)
	}

	s.log.Info(ctx, "route saved", logger.String("challenge_id", challengeID), logger.Int("waypoints", len(route)))
	return route, nil
}

func (s *Service) Route(ctx context.Context, challengeID string) ([]Waypoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, challenge_id, position, kind, lat, lng, radius_m, COALESCE(name,'')
		FROM route_waypoints WHERE challenge_id=$1
		ORDER BY position
	`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var route []Waypoint
	for rows.Next() {
		var (
			wp   Waypoint
			kind string
		)
		if err := rows.Scan(&wp.ID, &wp.ChallengeID, &wp.Order, &kind, &wp.Lat, &wp.Lng, &wp.RadiusM, &wp.Name); err != nil {
			return nil, err
		}
		wp.Kind = Kind(kind)
		route = append(route, wp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(route) == 0 {
		return nil, ErrRouteNotFound
	}
	return route, nil
}

// Progress evaluates a session's full track against a challenge route and
// pushes the result to the session's live subscribers.
func (s *Service) Progress(ctx context.Context, challengeID, sessionID string) (Progress, error) {
	route, err := s.Route(ctx, challengeID)
	if err != nil {
		return Progress{}, err
	}
	track, err := s.tracks.Samples(ctx, sessionID)
	if err != nil {
		return Progress{}, fmt.Errorf("load track: %w", err)
	}

	progress := CheckProgress(route, track)
	s.metrics.ObserveProgress(progress.AllCleared)
	s.log.Debug(ctx, "progress evaluated",
		logger.String("challenge_id", challengeID),
		logger.String("session_id", sessionID),
		logger.Int("reached_index", progress.ReachedIndex))
	if s.hub != nil {
		s.hub.Publish(sessionID, "progress", ProgressUpdate{ChallengeID: challengeID, Progress: progress})
	}
	return progress, nil
}

// StashDraft parks a validated route until a challenge claims it.
func (s *Service) StashDraft(ctx context.Context, waypoints []Waypoint) (string, error) {
	route, err := ValidateRoute(waypoints)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(route)
	if err != nil {
		return "", err
	}
	return s.drafts.Put(ctx, payload)
}

// ClaimDraft consumes a stashed route and saves it for the challenge. The
// draft stays claimable when saving fails.
func (s *Service) ClaimDraft(ctx context.Context, challengeID, draftID string) ([]Waypoint, error) {
	payload, err := s.drafts.Take(ctx, draftID)
	if err != nil {
		return nil, err
	}
	var route []Waypoint
	if err := json.Unmarshal(payload, &route); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	saved, err := s.SaveRoute(ctx, challengeID, route)
	if err != nil {
		if rerr := s.drafts.Restore(ctx, draftID, payload); rerr != nil {
			s.log.Error(ctx, "draft restore failed", logger.String("draft_id", draftID), logger.Err(rerr))
		}
		return nil, err
	}
	return saved, nil
}
