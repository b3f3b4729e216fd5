package scoring

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

// Manifest is the trained model's feature contract: the exact feature
// order the trees index into, plus encoding tables for categoricals. The
// model is only valid against feature vectors built from its own manifest.
type Manifest struct {
	Version  string   `json:"version"`
	Features []string `json:"final_features"`

	// CategoricalMappings maps a categorical feature to its value codes.
	// Values outside the mapping are treated as missing, not zero.
	CategoricalMappings map[string]map[string]float64 `json:"categorical_mappings"`
}

// LoadManifest parses a manifest artifact and verifies every named feature
// resolves against the input schema. A manifest naming a feature this
// codebase cannot produce is a deploy error and fails the load.
func LoadManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "scoring: parse manifest artifact")
	}
	if len(m.Features) == 0 {
		return nil, eris.New("scoring: manifest has no features")
	}

	seen := make(map[string]bool, len(m.Features))
	var unknown []string
	probe := &model.FeatureRecord{}
	for _, name := range m.Features {
		if seen[name] {
			return nil, eris.Errorf("scoring: manifest lists %s twice", name)
		}
		seen[name] = true
		if _, categorical := m.CategoricalMappings[name]; categorical {
			if _, ok := probe.CategoricalFeature(name); !ok {
				unknown = append(unknown, name)
			}
			continue
		}
		if _, ok := probe.NumericFeature(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, eris.Errorf("scoring: manifest names unresolvable features: %s", strings.Join(unknown, ", "))
	}

	for name := range m.CategoricalMappings {
		if !seen[name] {
			return nil, eris.Errorf("scoring: categorical mapping for %s which is not a feature", name)
		}
	}
	return &m, nil
}

// Vector encodes one advisor into the manifest's feature order. The
// returned mask marks positions whose value is unknown (unmapped
// categorical levels); the model routes those down default branches.
func (m *Manifest) Vector(r *model.FeatureRecord) ([]float64, []bool) {
	vec := make([]float64, len(m.Features))
	missing := make([]bool, len(m.Features))
	for i, name := range m.Features {
		if mapping, categorical := m.CategoricalMappings[name]; categorical {
			value, _ := r.CategoricalFeature(name)
			code, ok := mapping[value]
			if !ok {
				missing[i] = true
				continue
			}
			vec[i] = code
			continue
		}
		v, _ := r.NumericFeature(name)
		vec[i] = v
	}
	return vec, missing
}

// FeatureName returns the feature at a tree's feature index.
func (m *Manifest) FeatureName(idx int) string {
	if idx < 0 || idx >= len(m.Features) {
		return ""
	}
	return m.Features[idx]
}
