package service

import (
	"context"
	"fmt"

	"github.com/ArionMiles/smartspend/pkg/analytics"
)

// Analytics computes every view over the current records of owner.
func (s *Service) Analytics(ctx context.Context, owner string) (analytics.Snapshot, error) {
	if err := requireOwner(owner); err != nil {
		return analytics.Snapshot{}, err
	}
	return s.engine.Snapshot(ctx, owner)
}

// Summary is the insight phrases plus the views they were derived from.
type Summary struct {
	Phrases []string           `json:"summary_phrases"`
	Raw     analytics.Snapshot `json:"raw_analytics"`
}

// Summary computes the insight phrases for owner.
func (s *Service) Summary(ctx context.Context, owner string) (Summary, error) {
	snap, err := s.Analytics(ctx, owner)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Phrases: s.summarizer.Summarize(snap), Raw: snap}, nil
}

// Profile is the insight phrases with optional model-written tips.
type Profile struct {
	Phrases []string `json:"summary_phrases"`
	Tips    string   `json:"gemini_tips,omitempty"`
}

// ProfileTips summarizes owner and, when an advisor is configured, asks it
// for savings tips.
func (s *Service) ProfileTips(ctx context.Context, owner string) (Profile, error) {
	sum, err := s.Summary(ctx, owner)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{Phrases: sum.Phrases}
	if s.advisor == nil {
		return p, nil
	}
	if p.Tips, err = s.advisor.Tips(ctx, sum.Phrases); err != nil {
		return Profile{}, fmt.Errorf("generating tips: %w", err)
	}
	return p, nil
}
