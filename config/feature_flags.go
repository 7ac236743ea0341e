package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles with gradual rollout by login.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	loginOverrides map[string]map[string]bool // login -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Logins are assigned based on a hash
	RolloutPercent int
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	Login string
}

// Predefined feature flag names.
const (
	// === Achievements ===
	FeatureGoalAchievements   = "achievements.goals"   // Single-threshold goals
	FeatureSecretAchievements = "achievements.secrets" // Hidden rule-based achievements

	// === Presentation ===
	FeatureAnimation = "layout.animation" // Staggered reveal and glow

	// === API ===
	FeatureInboundRateLimit = "api.rate_limit" // Per-IP request limiting
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:       make(map[string]*Feature),
		loginOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureGoalAchievements] = &Feature{
		Name:           FeatureGoalAchievements,
		Description:    "Evaluate single-threshold goal achievements",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSecretAchievements] = &Feature{
		Name:           FeatureSecretAchievements,
		Description:    "Evaluate secret achievements",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAnimation] = &Feature{
		Name:           FeatureAnimation,
		Description:    "Allow animated cards",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureInboundRateLimit] = &Feature{
		Name:           FeatureInboundRateLimit,
		Description:    "Limit requests per client IP",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_ACHIEVEMENTS_SECRETS=false
// Example: FEATURE_LAYOUT_ANIMATION=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}

		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "achievements.secrets" -> "FEATURE_ACHIEVEMENTS_SECRETS"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	if ff == nil {
		return true
	}

	ff.mu.RLock()
	defer ff.mu.RUnlock()

	login := ""
	if ctx != nil {
		login = strings.ToLower(ctx.Login)
	}

	if login != "" {
		if overrides, ok := ff.loginOverrides[login]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	if feature.RolloutPercent < 100 && login != "" {
		return isInRollout(login, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout uses consistent hashing so a login stays in its bucket.
func isInRollout(login, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(login))

	return int(h.Sum32()%100) < percent
}

// SetLoginOverride sets a feature override for a specific login.
func (ff *FeatureFlags) SetLoginOverride(login, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	login = strings.ToLower(login)
	if _, ok := ff.loginOverrides[login]; !ok {
		ff.loginOverrides[login] = make(map[string]bool)
	}
	ff.loginOverrides[login][featureName] = enabled
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
