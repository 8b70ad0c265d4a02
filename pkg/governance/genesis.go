package governance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadGenesis reads a YAML genesis file declaring the keyholder set and
// multisig threshold. The file format mirrors Genesis's own field names.
func LoadGenesis(path string) (Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("governance: read genesis file: %w", err)
	}
	var g Genesis
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Genesis{}, fmt.Errorf("governance: parse genesis file: %w", err)
	}
	return g, nil
}
