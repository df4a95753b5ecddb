package risk

import (
	"testing"

	"github.com/rhysm/assetgraph/internal/domain"
)

func TestScoreWeightsAndThresholds(t *testing.T) {
	cases := []struct {
		name        string
		criticality domain.Criticality
		environment domain.Environment
		assetType   domain.AssetType
		wantScore   int
		wantExp     domain.ExposureLevel
		wantComp    domain.ComplianceStatus
	}{
		{
			name:        "critical production server clamps at ceiling",
			criticality: domain.CriticalityCritical,
			environment: domain.EnvironmentProduction,
			assetType:   domain.AssetTypeServer,
			wantScore:   10,
			wantExp:     domain.ExposureCritical,
			wantComp:    domain.ComplianceNonCompliant,
		},
		{
			name:        "critical staging iot hits ceiling boundary",
			criticality: domain.CriticalityCritical,
			environment: domain.EnvironmentStaging,
			assetType:   domain.AssetTypeIoTDevice,
			wantScore:   10,
			wantExp:     domain.ExposureCritical,
			wantComp:    domain.ComplianceNonCompliant,
		},
		{
			name:        "high production endpoint is exactly nine",
			criticality: domain.CriticalityHigh,
			environment: domain.EnvironmentProduction,
			assetType:   domain.AssetTypeEndpoint,
			wantScore:   9,
			wantExp:     domain.ExposureCritical,
			wantComp:    domain.ComplianceNonCompliant,
		},
		{
			name:        "high staging endpoint is high exposure",
			criticality: domain.CriticalityHigh,
			environment: domain.EnvironmentStaging,
			assetType:   domain.AssetTypeEndpoint,
			wantScore:   8,
			wantExp:     domain.ExposureHigh,
			wantComp:    domain.ComplianceNeedsReview,
		},
		{
			name:        "medium development network device is medium",
			criticality: domain.CriticalityMedium,
			environment: domain.EnvironmentDevelopment,
			assetType:   domain.AssetTypeNetworkDevice,
			wantScore:   5,
			wantExp:     domain.ExposureMedium,
			wantComp:    domain.ComplianceNeedsReview,
		},
		{
			name:        "low development endpoint is compliant",
			criticality: domain.CriticalityLow,
			environment: domain.EnvironmentDevelopment,
			assetType:   domain.AssetTypeEndpoint,
			wantScore:   3,
			wantExp:     domain.ExposureLow,
			wantComp:    domain.ComplianceCompliant,
		},
		{
			name:        "unmapped values degrade to safe defaults",
			criticality: domain.Criticality("Unknown"),
			environment: domain.Environment("Lab"),
			assetType:   domain.AssetType("Mainframe"),
			wantScore:   3,
			wantExp:     domain.ExposureLow,
			wantComp:    domain.ComplianceCompliant,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.criticality, tc.environment, tc.assetType)
			if got.RiskScore != tc.wantScore {
				t.Fatalf("risk score = %d, want %d", got.RiskScore, tc.wantScore)
			}
			if got.ExposureLevel != tc.wantExp {
				t.Fatalf("exposure = %s, want %s", got.ExposureLevel, tc.wantExp)
			}
			if got.ComplianceStatus != tc.wantComp {
				t.Fatalf("compliance = %s, want %s", got.ComplianceStatus, tc.wantComp)
			}
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	first := Score(domain.CriticalityHigh, domain.EnvironmentProduction, domain.AssetTypeCloudResource)
	for i := 0; i < 100; i++ {
		again := Score(domain.CriticalityHigh, domain.EnvironmentProduction, domain.AssetTypeCloudResource)
		if again != first {
			t.Fatalf("score diverged on call %d: %+v != %+v", i, again, first)
		}
	}
}

func TestScoreStaysInRange(t *testing.T) {
	criticalities := []domain.Criticality{domain.CriticalityCritical, domain.CriticalityHigh, domain.CriticalityMedium, domain.CriticalityLow, ""}
	environments := []domain.Environment{domain.EnvironmentProduction, domain.EnvironmentStaging, domain.EnvironmentDevelopment, ""}
	types := []domain.AssetType{domain.AssetTypeServer, domain.AssetTypeEndpoint, domain.AssetTypeCloudResource, domain.AssetTypeNetworkDevice, domain.AssetTypeIoTDevice, domain.AssetTypeApplication, ""}

	for _, c := range criticalities {
		for _, e := range environments {
			for _, ty := range types {
				got := Score(c, e, ty)
				if got.RiskScore < 0 || got.RiskScore > MaxScore {
					t.Fatalf("score out of range for (%s, %s, %s): %d", c, e, ty, got.RiskScore)
				}
			}
		}
	}
}

func TestScoreAssetMatchesScore(t *testing.T) {
	asset := domain.Asset{
		Criticality: domain.CriticalityCritical,
		Environment: domain.EnvironmentProduction,
		Type:        domain.AssetTypeServer,
	}
	if got, want := ScoreAsset(asset), Score(asset.Criticality, asset.Environment, asset.Type); got != want {
		t.Fatalf("ScoreAsset = %+v, want %+v", got, want)
	}
}
