package mongoship

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/bft-labs/mongoship/pkg/log"
	"github.com/bft-labs/mongoship/pkg/state"
)

// Version is the version of the mongoship package.
const Version = "1.0.0"

// ModuleVersions returns the versions of the public packages.
func ModuleVersions() map[string]string {
	return map[string]string{
		"mongoship": Version,
		"log":       log.Version,
		"state":     state.Version,
	}
}

// validateModuleVersions checks every public package against its minimum
// compatible version.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"log":   {log.Version, log.MinCompatibleVersion},
		"state": {state.Version, state.MinCompatibleVersion},
	}

	for name, m := range modules {
		ok, err := isVersionCompatible(m.version, m.minVersion)
		if err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
		if !ok {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible reports whether version >= minVersion.
func isVersionCompatible(version, minVersion string) (bool, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}
	floor, err := semver.NewVersion(minVersion)
	if err != nil {
		return false, err
	}
	return !v.LessThan(floor), nil
}
