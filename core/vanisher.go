package core

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"vanisher/logger"
	"vanisher/models"
)

// SettingStore is the host-provided persistent key/value store backing
// the serialized rule list. Injected so the core is testable without a
// live database.
type SettingStore interface {
	Load(key string) (string, error)
	Save(key, value string) error
}

// Banner is printed when a surface starts. The host proxy must be
// configured to drop out-of-scope items from its own history; entries
// already recorded there cannot be removed from here.
const Banner = `[OFS Vanisher] Loaded.
IMPORTANT: enable the host proxy's "don't log out-of-scope items" option so
excluded hosts stop appearing in its history. Existing history rows cannot
be removed.`

// Vanisher composes the rule store, scope syncer and persistence into
// the operations every surface adapter (API, CLI, proxy hook) calls.
// Every mutation follows the same flow: store change, scope sync,
// persistence write.
type Vanisher struct {
	store         *RuleStore
	syncer        *Syncer
	settings      SettingStore
	skippedOnLoad int
}

func NewVanisher(settings SettingStore, excluder ScopeExcluder) *Vanisher {
	return &Vanisher{
		store:    NewRuleStore(),
		syncer:   NewSyncer(excluder),
		settings: settings,
	}
}

// Store exposes the rule store for the proxy's matcher reads.
func (v *Vanisher) Store() *RuleStore {
	return v.store
}

// LoadRules reads the persisted rule blob and fills the store. Corrupt
// individual records are skipped and counted, never fatal.
func (v *Vanisher) LoadRules() error {
	blob, err := v.settings.Load(models.IgnoreRulesKey)
	if err != nil {
		return fmt.Errorf("loading ignore rules setting: %w", err)
	}
	loaded, skipped := v.store.Load(blob)
	v.skippedOnLoad = len(skipped)
	if v.skippedOnLoad > 0 {
		logger.Warn("Loaded %d ignore rules, skipped %d malformed entries.", loaded, v.skippedOnLoad)
	} else {
		logger.Info("Loaded %d ignore rules.", loaded)
	}
	return nil
}

// SkippedOnLoad reports how many persisted records were dropped by the
// last LoadRules call.
func (v *Vanisher) SkippedOnLoad() int {
	return v.skippedOnLoad
}

// AutoExcludeOnLoad replays every loaded rule against the host scope
// API, matching the original load behavior.
func (v *Vanisher) AutoExcludeOnLoad() SyncReport {
	report := v.syncer.SyncAll(v.store.Rules())
	logger.Info("Auto-exclude on load: %s", report.Summary())
	return report
}

// Persist writes the serialized store to the settings store.
func (v *Vanisher) Persist() error {
	if err := v.settings.Save(models.IgnoreRulesKey, v.store.Serialize()); err != nil {
		return fmt.Errorf("saving ignore rules setting: %w", err)
	}
	return nil
}

// AddResult is what a successful add hands back to the surface.
type AddResult struct {
	Rule     models.Rule `json:"rule"`
	Position int         `json:"position"`
	Added    bool        `json:"added"`
	Sync     SyncReport  `json:"sync"`
}

// AddRule appends a rule, mirrors it to host scope and persists. A sync
// failure is reported inside the result, not as an error: the rule is
// still added and matched locally.
func (v *Vanisher) AddRule(r models.Rule) (AddResult, error) {
	pos, err := v.store.Add(r)
	if err != nil {
		return AddResult{}, err
	}
	report := v.syncer.SyncAll([]models.Rule{r})
	if err := v.Persist(); err != nil {
		return AddResult{}, err
	}
	logger.Info("Added ignore rule %q at position %d. %s", r.String(), pos, report.Summary())
	return AddResult{Rule: r, Position: pos, Added: true, Sync: report}, nil
}

// AddEntry parses a raw user entry (host or http(s) URL) and adds it.
func (v *Vanisher) AddEntry(entry string) (AddResult, error) {
	r, err := models.ParseEntry(entry)
	if err != nil {
		return AddResult{}, err
	}
	return v.AddRule(r)
}

// EditEntry replaces the rule at position with the parsed new entry,
// preserving the row, then syncs the new value and persists.
func (v *Vanisher) EditEntry(position int, entry string) (AddResult, error) {
	r, err := models.ParseEntry(entry)
	if err != nil {
		return AddResult{}, err
	}
	if err := v.store.Edit(position, r); err != nil {
		return AddResult{}, err
	}
	report := v.syncer.SyncAll([]models.Rule{r})
	if err := v.Persist(); err != nil {
		return AddResult{}, err
	}
	logger.Info("Edited ignore rule at position %d to %q. %s", position, r.String(), report.Summary())
	return AddResult{Rule: r, Position: position, Sync: report}, nil
}

// RemoveRules deletes the rules at the given positions and persists.
// No un-exclude call is issued; host exclusions stay until edited in
// the host's own scope UI.
func (v *Vanisher) RemoveRules(positions []int) ([]models.Rule, error) {
	removed, err := v.store.RemoveAll(positions)
	if err != nil {
		return nil, err
	}
	if err := v.Persist(); err != nil {
		return removed, err
	}
	logger.Info("Removed %d ignore rules.", len(removed))
	return removed, nil
}

// ClearRules empties the store and persists the empty list. Previously
// synced host exclusions are intentionally left intact.
func (v *Vanisher) ClearRules() (int, error) {
	n := v.store.Clear()
	if err := v.Persist(); err != nil {
		return n, err
	}
	logger.Info("Cleared all %d ignore rules. (Host scope exclusions remain.)", n)
	return n, nil
}

// ExcludePositions replays the rules at the given positions against the
// host scope API ("Exclude Selected"). Empty positions means all rules.
func (v *Vanisher) ExcludePositions(positions []int) (SyncReport, error) {
	rules := v.store.Rules()
	var selected []models.Rule
	if len(positions) == 0 {
		selected = rules
	} else {
		for _, p := range positions {
			if p < 0 || p >= len(rules) {
				return SyncReport{}, &NotFoundError{Position: p}
			}
			selected = append(selected, rules[p])
		}
	}
	report := v.syncer.SyncAll(selected)
	logger.Info("Exclude selected: %s", report.Summary())
	return report, nil
}

// IgnoreHost implements the "Ignore Host (ANY)" action for an observed
// request. The rule is added if absent and excluded either way, then
// persisted, matching the original context-menu behavior.
func (v *Vanisher) IgnoreHost(rawURL string) (AddResult, error) {
	host, _, err := RequestHostAndPath(rawURL)
	if err != nil {
		return AddResult{}, err
	}
	r, err := models.NewHostRule(host)
	if err != nil {
		return AddResult{}, err
	}
	return v.ignoreRule(r)
}

// IgnoreURL implements the "Ignore Full URL (path only)" action: the
// query string is stripped and a URL-scope rule for the bare path is
// added if absent, excluded either way, then persisted.
func (v *Vanisher) IgnoreURL(rawURL string) (AddResult, error) {
	host, path, err := RequestHostAndPath(rawURL)
	if err != nil {
		return AddResult{}, err
	}
	r, err := models.NewURLRule(host, path)
	if err != nil {
		return AddResult{}, err
	}
	return v.ignoreRule(r)
}

func (v *Vanisher) ignoreRule(r models.Rule) (AddResult, error) {
	pos, err := v.store.Add(r)
	added := true
	if err != nil {
		var dup *DuplicateRuleError
		if !errors.As(err, &dup) {
			return AddResult{}, err
		}
		added = false
	}
	// Exclude even when the rule already existed.
	report := v.syncer.SyncAll([]models.Rule{r})
	if added {
		if err := v.Persist(); err != nil {
			return AddResult{}, err
		}
		logger.Info("Ignore action added %q at position %d. %s", r.String(), pos, report.Summary())
	} else {
		logger.Info("Ignore action re-excluded existing rule %q. %s", r.String(), report.Summary())
	}
	return AddResult{Rule: r, Position: pos, Added: added, Sync: report}, nil
}

// RequestHostAndPath extracts the addressable identity of an observed
// request URL: lowercased hostname and path with query and fragment
// stripped. Bare hostnames are accepted for host-only actions.
func RequestHostAndPath(rawURL string) (string, string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", "", fmt.Errorf("empty request URL")
	}
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		// Treat as a bare host.
		if strings.ContainsAny(rawURL, "/ \t") {
			return "", "", fmt.Errorf("cannot derive host from %q", rawURL)
		}
		return strings.ToLower(rawURL), "/", nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing request URL %q: %w", rawURL, err)
	}
	if u.Hostname() == "" {
		return "", "", fmt.Errorf("request URL %q has no host", rawURL)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return strings.ToLower(u.Hostname()), path, nil
}
