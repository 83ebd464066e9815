package scenario

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads a scenario document from path using viper, decoding into
// the nested Document shape via Unmarshal.
func Load(path string) (*Document, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MESHSIM")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}

	doc := &Document{}
	if err := v.Unmarshal(doc); err != nil {
		return nil, fmt.Errorf("scenario: decode %s: %w", path, err)
	}
	if doc.Simulation.TimeScale == 0 {
		doc.Simulation.TimeScale = 1.0
	}
	return doc, nil
}
