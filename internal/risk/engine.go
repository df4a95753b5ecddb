// Package risk computes asset risk scores. Scoring is a pure function of
// three asset attributes, so the ingestion path, the retry path, and manual
// asset creation all call the same code and always agree.
package risk

import "github.com/rhysm/assetgraph/internal/domain"

// MaxScore is the ceiling the combined weights are clamped to.
const MaxScore = 10

var criticalityWeights = map[domain.Criticality]int{
	domain.CriticalityCritical: 8,
	domain.CriticalityHigh:     6,
	domain.CriticalityMedium:   4,
	domain.CriticalityLow:      2,
}

var environmentWeights = map[domain.Environment]int{
	domain.EnvironmentProduction:  2,
	domain.EnvironmentStaging:     1,
	domain.EnvironmentDevelopment: 0,
}

var assetTypeWeights = map[domain.AssetType]int{
	domain.AssetTypeServer:        2,
	domain.AssetTypeCloudResource: 2,
	domain.AssetTypeIoTDevice:     3,
	domain.AssetTypeEndpoint:      1,
	domain.AssetTypeNetworkDevice: 1,
}

// Assessment is the scoring result attached to an asset.
type Assessment struct {
	RiskScore        int                     `json:"risk_score"`
	ExposureLevel    domain.ExposureLevel    `json:"exposure_level"`
	ComplianceStatus domain.ComplianceStatus `json:"compliance_status"`
}

// Score computes the risk assessment for one asset. Unmapped enum values
// degrade to the lowest weight for their dimension instead of erroring, so
// the function is total over arbitrary input.
func Score(criticality domain.Criticality, environment domain.Environment, assetType domain.AssetType) Assessment {
	base, ok := criticalityWeights[criticality]
	if !ok {
		base = 2
	}

	env := environmentWeights[environment] // unmapped environments weigh 0

	typeScore, ok := assetTypeWeights[assetType]
	if !ok {
		typeScore = 1
	}

	score := base + env + typeScore
	if score > MaxScore {
		score = MaxScore
	}

	return Assessment{
		RiskScore:        score,
		ExposureLevel:    exposureFor(score),
		ComplianceStatus: complianceFor(score),
	}
}

// ScoreAsset applies Score to an asset's own attributes.
func ScoreAsset(asset domain.Asset) Assessment {
	return Score(asset.Criticality, asset.Environment, asset.Type)
}

func exposureFor(score int) domain.ExposureLevel {
	switch {
	case score >= 9:
		return domain.ExposureCritical
	case score >= 7:
		return domain.ExposureHigh
	case score >= 4:
		return domain.ExposureMedium
	default:
		return domain.ExposureLow
	}
}

func complianceFor(score int) domain.ComplianceStatus {
	switch {
	case score >= 9:
		return domain.ComplianceNonCompliant
	case score >= 4:
		return domain.ComplianceNeedsReview
	default:
		return domain.ComplianceCompliant
	}
}
