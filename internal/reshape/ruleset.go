package reshape

import (
	"fmt"
	"regexp"

	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"gopkg.in/yaml.v3"
)

// RuleSet is the YAML form of an ordered rule list:
//
//	field: THEMENBEREICH
//	rules:
//	  - bucket: pv-anlagen
//	    exact: "15"
//	    description: PV-Anlagen
//	  - bucket: stadtradeln
//	    field: MERKMAL
//	    pattern: '^Stadtradeln'
//	fixStrings:
//	  "typo": "fixed"
//
// A rule's field defaults to the top-level field.
type RuleSet struct {
	Field      string            `yaml:"field"`
	Rules      []RuleSpec        `yaml:"rules"`
	FixStrings map[string]string `yaml:"fixStrings"`
}

type RuleSpec struct {
	Bucket      string `yaml:"bucket"`
	Field       string `yaml:"field,omitempty"`
	Exact       string `yaml:"exact,omitempty"`
	Pattern     string `yaml:"pattern,omitempty"`
	Description string `yaml:"description,omitempty"`
}

func LoadRuleSet(data []byte) (RuleSet, failure.ClassifiedError) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, &ReshapeError{
			Message: err.Error(),
			Cause:   ErrCauseInvalidRule,
		}
	}
	if _, err := rs.Compile(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// Compile turns the rule definitions into rules, in file order.
func (rs RuleSet) Compile() ([]Rule, failure.ClassifiedError) {
	rules := make([]Rule, 0, len(rs.Rules))
	for i, def := range rs.Rules {
		field := def.Field
		if field == "" {
			field = rs.Field
		}
		invalid := func(msg string) failure.ClassifiedError {
			return &ReshapeError{
				Message: fmt.Sprintf("rule %d (%s): %s", i, def.Bucket, msg),
				Cause:   ErrCauseInvalidRule,
			}
		}
		switch {
		case def.Bucket == "":
			return nil, invalid("missing bucket")
		case field == "":
			return nil, invalid("missing field")
		case def.Exact != "" && def.Pattern != "":
			return nil, invalid("exact and pattern are mutually exclusive")
		case def.Pattern != "":
			re, err := regexp.Compile(def.Pattern)
			if err != nil {
				return nil, invalid(err.Error())
			}
			rules = append(rules, RegexRule{Bucket: def.Bucket, Field: field, Pattern: re})
		case def.Exact != "":
			rules = append(rules, ExactRule{Bucket: def.Bucket, Field: field, Value: def.Exact})
		default:
			return nil, invalid("needs exact or pattern")
		}
	}
	return rules, nil
}

func (rs RuleSet) Fixes() FixStrings {
	return FixStrings(rs.FixStrings)
}
