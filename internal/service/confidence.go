package service

import (
	"strings"
	"time"
)

const (
	confidenceBase     = 0.5
	recencyMaxBoost    = 0.3
	recencyWindowDays  = 365
	verifiedTagBoost   = 0.2
	expertTagBoost     = 0.3
	escalationBoost    = 0.1
	tagVerified        = "verified"
	tagExpertValidated = "expert_validated"
)

// ComputeConfidence derives the trust score for a candidate manual entry from
// its creation time, tags, and resolution method. The score starts at 0.5,
// gains a recency boost that decays linearly to zero over one year, tag boosts
// for "verified" and "expert_validated" (both may apply), and a boost when the
// resolution method involved an escalation. Capped at 1.0.
//
// Computed once at promotion time and persisted with the entry; reads never
// recompute it.
func ComputeConfidence(createdAt time.Time, tags []string, resolutionMethod string, now time.Time) float32 {
	score := float32(confidenceBase)
	score += recencyConfidenceBoost(createdAt, now)

	if hasTag(tags, tagVerified) {
		score += verifiedTagBoost
	}
	if hasTag(tags, tagExpertValidated) {
		score += expertTagBoost
	}

	if strings.Contains(strings.ToLower(resolutionMethod), "escalation") {
		score += escalationBoost
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// hasTag reports tag membership; boosts apply once no matter how often a
// tag is repeated.
func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

// recencyConfidenceBoost returns max(0, 0.3 * (1 - days/365)). A missing
// (zero) timestamp contributes no boost; a future timestamp is treated as
// day zero.
func recencyConfidenceBoost(createdAt time.Time, now time.Time) float32 {
	if createdAt.IsZero() {
		return 0
	}
	days := now.Sub(createdAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	boost := recencyMaxBoost * (1 - days/recencyWindowDays)
	if boost < 0 {
		return 0
	}
	return float32(boost)
}
