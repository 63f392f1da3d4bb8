package resource

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/jonwraymond/abclient/apierr"
)

// Field limits enforced before a request is sent.
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 1000
	MinVariants          = 2
	MaxVariants          = 10
)

// weightTolerance absorbs float rounding when cohort weights are summed.
const weightTolerance = 0.01

// fieldErrors collects one message per field; the first message wins.
type fieldErrors map[string]string

func (f fieldErrors) add(field, format string, args ...any) {
	if _, ok := f[field]; !ok {
		f[field] = fmt.Sprintf(format, args...)
	}
}

func (f fieldErrors) name(field, value string) {
	switch {
	case strings.TrimSpace(value) == "":
		f.add(field, "is required")
	case utf8.RuneCountInString(value) > MaxNameLength:
		f.add(field, "must be at most %d characters", MaxNameLength)
	}
}

func (f fieldErrors) description(field string, value *string) {
	if value != nil && utf8.RuneCountInString(*value) > MaxDescriptionLength {
		f.add(field, "must be at most %d characters", MaxDescriptionLength)
	}
}

func (f fieldErrors) err() error {
	return apierr.Validation(f)
}

// Validate checks an experiment before it is created.
func (e Experiment) Validate() error {
	f := fieldErrors{}
	f.name("name", e.Name)
	f.description("description", e.Description)
	f.description("hypothesis", e.Hypothesis)
	for i, tag := range e.Tags {
		if strings.TrimSpace(tag) == "" {
			f.add(fmt.Sprintf("tags[%d]", i), "must not be blank")
		}
	}
	if e.AudienceID != nil && strings.TrimSpace(*e.AudienceID) == "" {
		f.add("audience_id", "must not be blank")
	}

	keys := make(map[string]bool, len(e.Variants))
	controls := 0
	switch {
	case len(e.Variants) < MinVariants:
		f.add("variants", "at least %d variants are required", MinVariants)
	case len(e.Variants) > MaxVariants:
		f.add("variants", "at most %d variants are allowed", MaxVariants)
	}
	for i, v := range e.Variants {
		field := fmt.Sprintf("variants[%d]", i)
		switch {
		case strings.TrimSpace(v.Key) == "":
			f.add(field+".key", "is required")
		case keys[v.Key]:
			f.add(field+".key", "duplicate variant key %q", v.Key)
		}
		keys[v.Key] = true
		f.name(field+".name", v.Name)
		if v.Control {
			controls++
		}
	}
	if len(e.Variants) > 0 && controls != 1 {
		f.add("variants", "exactly one variant must be the control")
	}

	if e.WinningVariant != nil && !keys[*e.WinningVariant] {
		f.add("winning_variant", "must be one of the experiment's variants")
	}

	e.Assignment.validate(f, keys)
	return f.err()
}

func (a Assignment) validate(f fieldErrors, variants map[string]bool) {
	switch a.Type {
	case AssignmentCohort:
		if len(a.CohortWeights) == 0 {
			f.add("assignment.weights", "is required")
			return
		}
		sum := 0.0
		for key, w := range a.CohortWeights {
			if !variants[key] {
				f.add("assignment.weights", "unknown variant %q", key)
			}
			if w < 0 || w > 100 || math.IsNaN(w) {
				f.add("assignment.weights", "weight for %q must be between 0 and 100", key)
			}
			sum += w
		}
		for key := range variants {
			if _, ok := a.CohortWeights[key]; !ok {
				f.add("assignment.weights", "missing weight for variant %q", key)
			}
		}
		if math.Abs(sum-100) > weightTolerance {
			f.add("assignment.weights", "weights must sum to 100, got %g", sum)
		}
	case AssignmentStratified:
		if len(a.StratifiedWeights) == 0 {
			f.add("assignment.weights", "is required")
			return
		}
		if a.StrataAttribute == nil || strings.TrimSpace(*a.StrataAttribute) == "" {
			f.add("assignment.strata_key", "is required for %s assignment", AssignmentStratified)
		}
		seen := make(map[string]string)
		for key, strata := range a.StratifiedWeights {
			if !variants[key] {
				f.add("assignment.weights", "unknown variant %q", key)
			}
			if len(strata) == 0 {
				f.add("assignment.weights", "variant %q has no strata", key)
			}
			for _, s := range strata {
				if other, ok := seen[s]; ok && other != key {
					f.add("assignment.weights", "stratum %q is assigned to both %q and %q", s, other, key)
				}
				seen[s] = key
			}
		}
	case "":
		f.add("assignment.type", "is required")
	default:
		f.add("assignment.type", "must be %s or %s", AssignmentCohort, AssignmentStratified)
	}
}

// Validate checks a status transition request.
func (u StatusUpdate) Validate() error {
	f := fieldErrors{}
	if !u.Status.Settable() {
		f.add("status", "must be one of %s, %s, %s, %s", StatusLive, StatusPaused, StatusConcluded, StatusTerminated)
	}
	if u.WinningVariant != nil {
		switch {
		case u.Status != StatusConcluded:
			f.add("winning_variant", "may only be set when concluding")
		case strings.TrimSpace(*u.WinningVariant) == "":
			f.add("winning_variant", "must not be blank")
		}
	}
	return f.err()
}

// Validate checks an audience before it is created.
func (a Audience) Validate() error {
	f := fieldErrors{}
	f.name("name", a.Name)
	f.description("description", a.Description)
	if len(a.Rules) == 0 {
		f.add("rules", "at least one rule is required")
	}
	for i, r := range a.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if strings.TrimSpace(r.Attribute) == "" {
			f.add(field+".attribute", "is required")
		}
		if !r.Operator.Valid() {
			f.add(field+".operator", "unknown operator %q", r.Operator)
		}
		switch {
		case len(r.Values) == 0:
			f.add(field+".values", "at least one value is required")
		case len(r.Values) > 1 && !r.Operator.multiValued():
			f.add(field+".values", "%s takes a single value", r.Operator)
		}
	}
	return f.err()
}

// Validate checks a tenant before it is created.
func (t Tenant) Validate() error {
	f := fieldErrors{}
	f.name("name", t.Name)
	if t.Slug != nil && !validSlug(*t.Slug) {
		f.add("slug", "may contain only lowercase letters, digits and hyphens")
	}
	return f.err()
}

// Validate checks a project before it is created.
func (p Project) Validate() error {
	f := fieldErrors{}
	if strings.TrimSpace(p.TenantID) == "" {
		f.add("tenant_id", "is required")
	}
	f.name("name", p.Name)
	f.description("description", p.Description)
	return f.err()
}

// Validate checks an API key before it is created.
func (k APIKey) Validate() error {
	f := fieldErrors{}
	f.name("name", k.Name)
	if k.ExpiresAt != nil && *k.ExpiresAt <= 0 {
		f.add("expires_at", "must be a Unix timestamp")
	}
	return f.err()
}

func validSlug(s string) bool {
	if s == "" || strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
