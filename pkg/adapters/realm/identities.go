package realm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/authtree/pkg/nodes"
	"gopkg.in/yaml.v3"
)

type identitiesFile struct {
	Users []nodes.Identity `yaml:"users"`
}

// LoadIdentities reads dir/identities.yaml into a static identity store.
// A missing file yields an empty store.
func LoadIdentities(dir string) (*nodes.StaticIdentities, error) {
	path := filepath.Join(dir, IdentitiesFile+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nodes.NewStaticIdentities(), nil
		}
		return nil, fmt.Errorf("failed to read identities: %w", err)
	}

	var file identitiesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	for i, u := range file.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("identity #%d has no username", i)
		}
	}
	return nodes.NewStaticIdentities(file.Users...), nil
}
