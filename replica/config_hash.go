package replica

import (
	"github.com/mitchellh/hashstructure"

	"github.com/lsst-qserv/qserv-core/config"
)

// configFingerprint computes a structural hash of the whole cfg
// snapshot, used by the restart loops of FixUp/Replicate/Rebalance to
// detect a configuration change mid-pass.
func configFingerprint(cfg *config.Snapshot) (uint64, error) {
	if cfg == nil {
		return 0, nil
	}
	return hashstructure.Hash(*cfg, nil)
}

// configChanged reports whether cfg's current fingerprint differs from
// baseline.
func configChanged(baseline uint64, cfg *config.Snapshot) (bool, error) {
	current, err := configFingerprint(cfg)
	if err != nil {
		return false, err
	}
	return current != baseline, nil
}
