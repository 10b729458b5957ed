package scheme

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tableFile is the YAML layout of a scheme table:
//
//	schemes:
//	  - name: VISA
//	    aids: ["A0 00 00 00 03"]
//	    pan: "^4[0-9]{12}(?:[0-9]{3})?$"
type tableFile struct {
	Schemes []entry `yaml:"schemes"`
}

type entry struct {
	Name string   `yaml:"name"`
	AIDs []string `yaml:"aids"`
	PAN  string   `yaml:"pan"`
}

// LoadTable reads a scheme table from a YAML file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scheme table: %w", err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseTable parses a YAML scheme table, keeping the file order.
func ParseTable(data []byte) (Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scheme table: %w", err)
	}

	t := make(Table, 0, len(f.Schemes))
	for i, e := range f.Schemes {
		if e.Name == "" {
			return nil, fmt.Errorf("scheme #%d: missing name", i+1)
		}
		if len(e.AIDs) == 0 && e.PAN == "" {
			return nil, fmt.Errorf("scheme %s: needs aids or pan", e.Name)
		}
		s, err := New(e.Name, e.PAN, e.AIDs...)
		if err != nil {
			return nil, err
		}
		t = append(t, s)
	}
	return t, nil
}
