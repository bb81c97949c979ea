package cmd

import (
	"time"
	"vanisher/config"
	"vanisher/core"
	"vanisher/database"
	"vanisher/hostapi"
	"vanisher/logger"
)

// newExcluder builds the host scope API client from config. When the
// host API is disabled the core runs against a no-op excluder and rules
// are maintained locally only.
func newExcluder() (core.ScopeExcluder, core.ExclusionLister) {
	cfg := config.AppConfig.HostAPI
	if !cfg.Enabled || cfg.BaseURL == "" {
		return core.NopExcluder{}, nil
	}
	client := hostapi.New(cfg.BaseURL, cfg.ExcludePath, cfg.ListPath, cfg.PatternsPath,
		cfg.AuthToken, time.Duration(cfg.TimeoutSeconds)*time.Second)
	return client, client
}

// newVanisher composes the service every command uses: settings-backed
// persistence, the configured excluder, persisted rules loaded, and the
// startup auto-exclude replayed.
func newVanisher(autoExclude bool) (*core.Vanisher, core.ExclusionLister, error) {
	excluder, lister := newExcluder()
	v := core.NewVanisher(database.SettingStore{}, excluder)
	if err := v.LoadRules(); err != nil {
		return nil, nil, err
	}
	if autoExclude {
		report := v.AutoExcludeOnLoad()
		if len(report.Failures) > 0 {
			logger.Warn("Auto-exclude on load had failures: %s", report.Summary())
		}
	}
	return v, lister, nil
}
