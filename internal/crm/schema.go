package crm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/P3dr7/SDR-IA/pkg/logging"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// schemaSource provides the external field list. *Client satisfies it; tests
// substitute a fake.
type schemaSource interface {
	Configured() bool
	PipeFields(ctx context.Context) ([]PipeField, error)
}

// triggerRule binds a logical field to labels containing every one of its
// substrings. Rules are applied to fields in the order the external schema
// returns them, and a later field matching the same rule overwrites an
// earlier binding. That last-match-wins order is inherited behavior, kept
// deliberately; it is observable through Mapping for anyone who needs to
// audit a surprising binding.
type triggerRule struct {
	logical    string
	substrings [][]string // outer OR of inner ANDs
}

var triggerRules = []triggerRule{
	{FieldName, [][]string{{"nome"}, {"name"}}},
	{FieldEmail, [][]string{{"email"}, {"e_mail"}}},
	{FieldCompany, [][]string{{"empresa"}, {"company"}}},
	{FieldNeed, [][]string{{"necessidade"}, {"need"}}},
	{FieldInterestConfirmed, [][]string{{"interesse"}, {"interest"}}},
	{FieldMeetingLink, [][]string{{"link", "reuniao"}, {"link", "meeting"}}},
	{FieldMeetingDate, [][]string{{"data", "reuniao"}, {"date", "meeting"}}},
}

// Resolver discovers the external CRM schema once and caches the resolved
// field mapping for the process lifetime.
type Resolver struct {
	source schemaSource
	logger *logging.Logger

	mu     sync.Mutex
	cached Mapping
	loaded bool
}

// NewResolver creates a schema resolver backed by the given client.
func NewResolver(source schemaSource, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{source: source, logger: logger}
}

// ResolveFieldMapping returns the cached mapping, loading it on first use.
// A nil mapping with a nil error means no external configuration is present
// and callers should operate in simulated mode.
func (r *Resolver) ResolveFieldMapping(ctx context.Context) (Mapping, error) {
	if !r.source.Configured() {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.cached, nil
	}

	fields, err := r.source.PipeFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("crm: load pipe fields: %w", err)
	}

	mapping := make(Mapping, len(fields)+len(triggerRules))
	for _, field := range fields {
		key := NormalizeLabel(field.Label)
		if key == "" {
			continue
		}
		ref := FieldRef{ID: field.ID, Type: field.Type}
		mapping[key] = ref

		for _, rule := range triggerRules {
			if matchesRule(key, rule) {
				mapping[rule.logical] = ref
			}
		}
	}

	r.logger.Info("crm field mapping resolved", "fields", len(fields), "bindings", len(mapping))
	r.cached = mapping
	r.loaded = true
	return r.cached, nil
}

// Mapping exposes the currently resolved mapping for inspection. It returns
// nil when nothing has been resolved yet.
func (r *Resolver) Mapping() Mapping {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cached
}

// Invalidate clears the cached mapping so the next resolution reloads the
// external schema. Intended as a rare administrative action.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
	r.loaded = false
	r.logger.Info("crm field mapping cache cleared")
}

func matchesRule(normalizedLabel string, rule triggerRule) bool {
	for _, conj := range rule.substrings {
		all := true
		for _, sub := range conj {
			if !strings.Contains(normalizedLabel, sub) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeLabel folds an external field label to the canonical key form:
// lowercase, diacritics stripped, whitespace collapsed to underscores, and
// anything outside [a-z0-9_] dropped.
func NormalizeLabel(label string) string {
	lower := strings.ToLower(strings.TrimSpace(label))

	stripped, _, err := transform.String(diacriticStripper, lower)
	if err != nil {
		stripped = lower
	}

	var b strings.Builder
	b.Grow(len(stripped))
	lastUnderscore := false
	for _, r := range stripped {
		switch {
		case unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		}
	}
	return b.String()
}
