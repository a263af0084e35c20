package service

import "github.com/roundtable-ai/roundtable/internal/core"

// Quality weights. Structural completeness carries 0.60, step
// specificity 0.25, and description depth 0.15, so the total stays in
// [0,1].
const (
	qualitySectionWeight = 0.15
	qualityStepsWeight   = 0.25
	qualityDepthWeight   = 0.15
	qualityStepsTarget   = 5
	qualityDepthTarget   = 400
)

// QualityScore rates a proposal's structural completeness and
// specificity. The score informs tie-breaks and default ballots only;
// the winner is always determined by votes.
func QualityScore(p core.Proposal) float64 {
	var score float64
	if p.Title != "" {
		score += qualitySectionWeight
	}
	if p.Description != "" {
		score += qualitySectionWeight
	}
	if len(p.Benefits) > 0 {
		score += qualitySectionWeight
	}
	if len(p.Steps) > 0 {
		score += qualitySectionWeight
	}

	steps := float64(len(p.Steps))
	if steps > qualityStepsTarget {
		steps = qualityStepsTarget
	}
	score += qualityStepsWeight * steps / qualityStepsTarget

	depth := float64(len(p.Description))
	if depth > qualityDepthTarget {
		depth = qualityDepthTarget
	}
	score += qualityDepthWeight * depth / qualityDepthTarget

	return score
}
