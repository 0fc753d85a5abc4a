package reshape

import (
	"fmt"
	"regexp"

	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

// Rule assigns rows to a bucket by looking at one named field.
type Rule interface {
	BucketName() string
	FieldName() string
	Matches(value string) bool
}

// ExactRule matches when the field equals Value exactly.
type ExactRule struct {
	Bucket string
	Field  string
	Value  string
}

func (r ExactRule) BucketName() string { return r.Bucket }

func (r ExactRule) FieldName() string { return r.Field }

func (r ExactRule) Matches(value string) bool {
	return value == r.Value
}

// RegexRule matches when Pattern matches anywhere in the field.
// Anchor the pattern to match from the start.
type RegexRule struct {
	Bucket  string
	Field   string
	Pattern *regexp.Regexp
}

func (r RegexRule) BucketName() string { return r.Bucket }

func (r RegexRule) FieldName() string { return r.Field }

func (r RegexRule) Matches(value string) bool {
	return r.Pattern != nil && r.Pattern.MatchString(value)
}

// FixStrings replaces known-bad field values (typos, encoding artifacts)
// with their corrected form. Only whole fields are compared.
type FixStrings map[string]string

// Apply returns a copy of fields with every known-bad value replaced.
func (f FixStrings) Apply(fields []string) []string {
	out := make([]string, len(fields))
	for i, v := range fields {
		if fixed, ok := f[v]; ok {
			out[i] = fixed
			continue
		}
		out[i] = v
	}
	return out
}

type boundRule struct {
	rule  Rule
	index int
}

// Classifier evaluates rules in order; the first match wins.
type Classifier struct {
	rules []boundRule
}

// NewClassifier resolves every rule's field against header.
// A rule naming a field the header lacks is a configuration error.
func NewClassifier(header Header, rules []Rule) (Classifier, failure.ClassifiedError) {
	bound := make([]boundRule, 0, len(rules))
	for i, rule := range rules {
		if rule == nil || rule.BucketName() == "" {
			return Classifier{}, &ReshapeError{
				Message: fmt.Sprintf("rule %d has no bucket", i),
				Cause:   ErrCauseInvalidRule,
			}
		}
		idx, ok := header.Index(rule.FieldName())
		if !ok {
			return Classifier{}, &ReshapeError{
				Message: fmt.Sprintf("rule %d (%s) refers to field %q", i, rule.BucketName(), rule.FieldName()),
				Cause:   ErrCauseUnknownField,
			}
		}
		bound = append(bound, boundRule{rule: rule, index: idx})
	}
	return Classifier{rules: bound}, nil
}

// Classify returns the bucket of the first matching rule.
// ok is false when no rule matches.
func (c Classifier) Classify(row DelimitedRow) (bucket string, ok bool) {
	for _, b := range c.rules {
		if b.rule.Matches(row.Field(b.index)) {
			return b.rule.BucketName(), true
		}
	}
	return "", false
}
