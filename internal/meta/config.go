package meta

import "fmt"

// Recognized configuration keys, stored as config/<key> files in the
// metadata tree.
const (
	KeyTrunkBookmark = "trunk_bookmark"
	KeyCheckCommand  = "check_command"
	KeyStrategy      = "strategy"
)

// Landing strategies.
const (
	StrategyMerge  = "merge"
	StrategyRebase = "rebase"
)

// DefaultTrunkBookmark applies when trunk_bookmark is not set.
const DefaultTrunkBookmark = "main"

// ConfigKeys lists the recognized keys in display order.
var ConfigKeys = []string{KeyTrunkBookmark, KeyCheckCommand, KeyStrategy}

// IsConfigKey reports whether key is a recognized configuration key.
func IsConfigKey(key string) bool {
	for _, k := range ConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ValidateConfigValue checks a value before it is written.
func ValidateConfigValue(key, value string) error {
	switch key {
	case KeyTrunkBookmark:
		if value == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	case KeyStrategy:
		if value != StrategyMerge && value != StrategyRebase {
			return fmt.Errorf("strategy must be %q or %q", StrategyMerge, StrategyRebase)
		}
	}
	return nil
}

func configPath(key string) string { return "config/" + key }

// ConfigGet returns the explicitly set value for a key, if any.
func (s *Store) ConfigGet(key string) (string, bool, error) {
	return s.Read(configPath(key))
}

// ConfigSet writes a configuration key.
func (s *Store) ConfigSet(key, value string) error {
	if err := ValidateConfigValue(key, value); err != nil {
		return err
	}
	return s.Write(configPath(key), value)
}

// TrunkBookmark returns the configured trunk bookmark name, defaulting to
// DefaultTrunkBookmark.
func (s *Store) TrunkBookmark() (string, error) {
	v, ok, err := s.ConfigGet(KeyTrunkBookmark)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return DefaultTrunkBookmark, nil
	}
	return v, nil
}

// CheckCommand returns the configured check command. It has no default; the
// second return value is false when unset.
func (s *Store) CheckCommand() (string, bool, error) {
	v, ok, err := s.ConfigGet(KeyCheckCommand)
	if err != nil || !ok {
		return "", false, err
	}
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// Strategy returns the configured landing strategy. Repositories that never
// set one land with the merge strategy; init writes an explicit choice for
// new repositories.
func (s *Store) Strategy() (string, error) {
	v, ok, err := s.ConfigGet(KeyStrategy)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return StrategyMerge, nil
	}
	if err := ValidateConfigValue(KeyStrategy, v); err != nil {
		return "", err
	}
	return v, nil
}
