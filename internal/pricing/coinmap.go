package pricing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// coinMapFile is the on-disk shape of extra symbol mappings:
//
//	coins:
//	  PEPE: pepe
//	  LINK: chainlink
type coinMapFile struct {
	Coins map[string]string `yaml:"coins"`
}

// LoadCoinMap reads symbol to coin id mappings from a YAML file.
// Environment variables in the file are expanded before parsing.
func LoadCoinMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coin map: %w", err)
	}

	var f coinMapFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, fmt.Errorf("parse coin map yaml: %w", err)
	}

	m := make(map[string]string, len(f.Coins))
	for sym, id := range f.Coins {
		sym, id = strings.TrimSpace(sym), strings.TrimSpace(id)
		if sym == "" || id == "" {
			return nil, fmt.Errorf("coin map: empty symbol or id in entry %q: %q", sym, id)
		}
		m[strings.ToUpper(sym)] = id
	}
	return m, nil
}
