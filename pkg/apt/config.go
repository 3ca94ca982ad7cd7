package apt

import "errors"

// Config holds the repository settings captured once when the
// repository is configured. Values never change for the lifetime of
// the facet they are handed to.
type Config struct {
	distribution string
	flat         bool
}

// NewConfig validates and freezes the repository configuration.
// A distribution is always required for hosted repositories.
func NewConfig(distribution string, flat bool) (Config, error) {
	if distribution == "" {
		return Config{}, errors.New("distribution must be set")
	}
	return Config{
		distribution: distribution,
		flat:         flat,
	}, nil
}

func (c Config) Distribution() string {
	return c.distribution
}

// Flat reports whether the repository uses a flat layout, i.e. index
// files live at the repository root rather than under dists/.
func (c Config) Flat() bool {
	return c.flat
}
