package application

import (
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/ericfisherdev/timepanel/internal/config"
	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// BuildIntegrationFunc constructs a concrete integration from its config
// entry and compiled rule set. The composition root supplies a builder that
// switches on entry.Type; the registry itself stays ignorant of service types.
type BuildIntegrationFunc func(entry config.IntegrationEntry, rules model.RuleSet) (driven.Integration, error)

// IntegrationRegistry holds the configured external-service integrations in
// their configured order. The set is rebuilt wholesale on Reload and never
// mutated incrementally; readers always see a complete, consistent slice.
type IntegrationRegistry struct {
	loadConfig func() (*config.IntegrationsConfig, error)
	build      BuildIntegrationFunc

	mu           sync.RWMutex
	integrations []driven.Integration
	upload       *config.UploadConfig
}

// NewIntegrationRegistry creates a registry that loads entries from the
// integrations file at path using the given builder. Call Reload to perform
// the initial load.
func NewIntegrationRegistry(path string, build BuildIntegrationFunc) *IntegrationRegistry {
	return &IntegrationRegistry{
		loadConfig: func() (*config.IntegrationsConfig, error) {
			return config.LoadIntegrations(path)
		},
		build: build,
	}
}

// newRegistryFromLoader is the seam for tests: a registry over an in-memory
// config source.
func newRegistryFromLoader(load func() (*config.IntegrationsConfig, error), build BuildIntegrationFunc) *IntegrationRegistry {
	return &IntegrationRegistry{loadConfig: load, build: build}
}

// Reload reads the integrations config and rebuilds the registry from
// scratch. A malformed entry is skipped with a warning; the remaining entries
// still load. Only an unreadable config file is an error, in which case the
// previous registry contents are kept.
func (r *IntegrationRegistry) Reload() error {
	cfg, err := r.loadConfig()
	if err != nil {
		return fmt.Errorf("reload integrations: %w", err)
	}

	integrations := make([]driven.Integration, 0, len(cfg.Integrations))
	for _, entry := range cfg.Integrations {
		if entry.Name == "" {
			slog.Warn("skipping integration entry without a name", "type", entry.Type)
			continue
		}

		rules := compileRules(entry)

		integration, err := r.build(entry, rules)
		if err != nil {
			slog.Warn("skipping integration entry", "name", entry.Name, "error", err)
			continue
		}

		integrations = append(integrations, integration)
	}

	r.mu.Lock()
	r.integrations = integrations
	r.upload = cfg.Upload
	r.mu.Unlock()

	slog.Info("integrations loaded", "count", len(integrations))
	return nil
}

// compileRules compiles an entry's extraction rules, skipping any rule whose
// pattern does not compile. The remaining rules keep their configured order.
func compileRules(entry config.IntegrationEntry) model.RuleSet {
	rules := make(model.RuleSet, 0, len(entry.Rules))
	for _, rc := range entry.Rules {
		re, err := regexp.Compile(rc.Pattern)
		if err != nil {
			slog.Warn("skipping invalid extraction rule",
				"integration", entry.Name,
				"pattern", rc.Pattern,
				"error", err,
			)
			continue
		}
		rules = append(rules, model.ExtractionRule{
			Pattern: re,
			Source:  model.RuleSource(rc.Source),
		})
	}
	return rules
}

// Get returns the integration with the given name, or ErrIntegrationNotFound.
func (r *IntegrationRegistry) Get(name string) (driven.Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, integration := range r.integrations {
		if integration.Name() == name {
			return integration, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, driven.ErrIntegrationNotFound)
}

// List returns the integrations in configured order.
func (r *IntegrationRegistry) List() []driven.Integration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]driven.Integration(nil), r.integrations...)
}

// UploadSettings returns the upload section of the integrations config, or
// nil when uploads are not configured.
func (r *IntegrationRegistry) UploadSettings() *config.UploadConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.upload
}

// ExtractAll consults every enabled integration in configured order and
// collects each one's ticket extraction. An activity may yield zero, one, or
// several matches; each integration contributes at most one.
func (r *IntegrationRegistry) ExtractAll(activity model.ActivityRecord) []model.TicketMatch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []model.TicketMatch
	for _, integration := range r.integrations {
		if !integration.IsEnabled() {
			continue
		}
		if ticketID, ok := integration.ExtractTicketID(activity); ok {
			matches = append(matches, model.TicketMatch{
				Integration: integration.Name(),
				TicketID:    ticketID,
			})
		}
	}
	return matches
}
