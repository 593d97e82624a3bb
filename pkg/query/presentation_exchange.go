package query

import (
	"regexp"
	"time"
)

// PresentationDefinition is the minimal Presentation Exchange request shape
// this engine evaluates: a set of input descriptors, each constraining
// which disclosed claims a candidate credential must carry.
type PresentationDefinition struct {
	ID               string            `json:"id"`
	InputDescriptors []InputDescriptor `json:"input_descriptors"`
}

type InputDescriptor struct {
	ID          string      `json:"id"`
	Constraints Constraints `json:"constraints"`
}

type Constraints struct {
	Fields []Field `json:"fields"`
}

// Field constrains one claim: the first of Path that resolves against a
// candidate's claim set must satisfy Filter, unless Optional is set.
type Field struct {
	Path     []string `json:"path"`
	Filter   *Filter  `json:"filter,omitempty"`
	Optional bool     `json:"optional,omitempty"`
}

type Filter struct {
	Const   any    `json:"const,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Format  string `json:"format,omitempty"`
}

// EvaluatePresentationExchange evaluates pd against the holder's indexed
// credentials. Returns, per input descriptor, the records that satisfy all
// of its non-optional fields; their order is not defined, as they are
// collected from a map. An input descriptor with zero satisfying records
// fails the whole evaluation.
func EvaluatePresentationExchange(pd *PresentationDefinition, claimsByRecord map[*Record]map[string]any) ([]Match, error) {
	matches := make([]Match, 0, len(pd.InputDescriptors))

	for _, desc := range pd.InputDescriptors {
		var hits []*Record
		for r, claims := range claimsByRecord {
			if matchesInputDescriptor(desc, r, claims) {
				hits = append(hits, r)
			}
		}
		if len(hits) == 0 {
			return nil, &UnsatisfiedQueryError{QueryID: desc.ID, Reason: "no matching credential"}
		}
		matches = append(matches, Match{QueryID: desc.ID, Records: hits})
	}

	return matches, nil
}

func matchesInputDescriptor(desc InputDescriptor, r *Record, claims map[string]any) bool {
	for _, field := range desc.Constraints.Fields {
		if !matchesField(field, r, claims) && !field.Optional {
			return false
		}
	}
	return true
}

func matchesField(field Field, r *Record, claims map[string]any) bool {
	for _, path := range field.Path {
		value, err := evalJSONPath(claims, path)
		if err != nil {
			continue
		}
		if field.Filter == nil {
			return true
		}
		return matchesFilter(*field.Filter, value)
	}
	return false
}

func matchesFilter(f Filter, value any) bool {
	switch {
	case f.Const != nil:
		return value == f.Const
	case f.Pattern != "":
		s, ok := value.(string)
		if !ok {
			return false
		}
		matched, err := regexp.MatchString(f.Pattern, s)
		return err == nil && matched
	case f.Format != "":
		s, ok := value.(string)
		if !ok {
			return false
		}
		return matchesDateFormat(f.Format, s)
	default:
		return true
	}
}

func matchesDateFormat(format, value string) bool {
	switch format {
	case "date":
		_, err := time.Parse("2006-01-02", value)
		return err == nil
	case "date-time":
		_, err := time.Parse(time.RFC3339, value)
		return err == nil
	default:
		return false
	}
}
