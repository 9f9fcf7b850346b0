package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/featuremill/featuremill/internal/domain"
	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/params"
)

// envelope is the persisted layout: {version, per-feature {role, params}}.
type envelope struct {
	Version  int          `json:"version"`
	Features []featureDTO `json:"features"`
}

type featureDTO struct {
	Name       string      `json:"name"`
	Role       string      `json:"role"`
	Scale      *scaleDTO   `json:"scale,omitempty"`
	Buckets    *bucketsDTO `json:"buckets,omitempty"`
	Vocabulary []string    `json:"vocabulary,omitempty"`
}

type scaleDTO struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Degenerate bool    `json:"degenerate,omitempty"`
}

type bucketsDTO struct {
	Boundaries []float64 `json:"boundaries"`
}

// Encode serializes analyzer parameters into the versioned envelope.
func Encode(p params.Params) ([]byte, error) {
	env := envelope{Version: params.Version}
	for _, name := range p.FeatureNames() {
		pf, _ := p.Feature(name)
		dto := featureDTO{Name: pf.Name(), Role: string(pf.Role())}
		switch pf.Role() {
		case feature.Numeric:
			s := pf.Scale()
			dto.Scale = &scaleDTO{Min: s.Min, Max: s.Max, Degenerate: s.Degenerate}
		case feature.Bucketized:
			dto.Buckets = &bucketsDTO{Boundaries: pf.Buckets().Boundaries}
		case feature.Categorical, feature.Label:
			dto.Vocabulary = pf.Vocabulary().Values()
		}
		env.Features = append(env.Features, dto)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return data, nil
}

// Decode deserializes a persisted envelope, rejecting unsupported versions.
func Decode(data []byte) (params.Params, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return params.Params{}, fmt.Errorf("unmarshal params: %w", err)
	}
	if env.Version != params.Version {
		return params.Params{}, domain.NewVersionMismatch(env.Version, params.Version)
	}

	features := make([]params.Feature, 0, len(env.Features))
	for _, dto := range env.Features {
		role := feature.Role(dto.Role)
		switch role {
		case feature.Numeric:
			if dto.Scale == nil {
				return params.Params{}, fmt.Errorf("feature %q: numeric params without scale", dto.Name)
			}
			s := params.Scale{Min: dto.Scale.Min, Max: dto.Scale.Max, Degenerate: dto.Scale.Degenerate}
			features = append(features, params.NewScaleFeature(dto.Name, s))
		case feature.Bucketized:
			if dto.Buckets == nil {
				return params.Params{}, fmt.Errorf("feature %q: bucketized params without boundaries", dto.Name)
			}
			features = append(features, params.NewBucketFeature(dto.Name, params.Buckets{Boundaries: dto.Buckets.Boundaries}))
		case feature.Categorical, feature.Label:
			features = append(features, params.NewVocabFeature(dto.Name, role, params.NewVocabulary(dto.Vocabulary)))
		default:
			return params.Params{}, fmt.Errorf("feature %q: unknown role %q", dto.Name, dto.Role)
		}
	}
	return params.New(features), nil
}
