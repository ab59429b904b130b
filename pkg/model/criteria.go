package model

import (
	"regexp"

	"github.com/pkg/errors"
)

// Criteria is a validated live-filter / historical-search predicate: the
// allowed keys are id, source, start, end, content and tags (see §3 Filter).
// Regex fields are matched anchored at the start of the value they test.
// Criteria is used by the live matcher; /find requests do not go through
// it but are passed to the store's Search, whose content filter is an
// unanchored, case-insensitive substring match in the naive store (see
// pkg/naivestore).
type Criteria struct {
	ID      *regexp.Regexp
	Source  *regexp.Regexp
	Content *regexp.Regexp
	Start   *float64
	End     *float64
	Tags    []string
}

// ParseCriteria validates and compiles a raw criteria map, as decoded from
// a /live or /find JSON frame. Unknown keys and values of the wrong type
// are rejected with ErrInvalidCriteria.
func ParseCriteria(raw map[string]interface{}) (Criteria, error) {
	var c Criteria
	for key, val := range raw {
		switch key {
		case "id":
			re, err := compileAnchored(val)
			if err != nil {
				return Criteria{}, errors.Wrapf(ErrInvalidCriteria, "id: %v", err)
			}
			c.ID = re
		case "source":
			re, err := compileAnchored(val)
			if err != nil {
				return Criteria{}, errors.Wrapf(ErrInvalidCriteria, "source: %v", err)
			}
			c.Source = re
		case "content":
			re, err := compileAnchored(val)
			if err != nil {
				return Criteria{}, errors.Wrapf(ErrInvalidCriteria, "content: %v", err)
			}
			c.Content = re
		case "start":
			f, err := asFloat(val)
			if err != nil {
				return Criteria{}, errors.Wrapf(ErrInvalidCriteria, "start: %v", err)
			}
			c.Start = &f
		case "end":
			f, err := asFloat(val)
			if err != nil {
				return Criteria{}, errors.Wrapf(ErrInvalidCriteria, "end: %v", err)
			}
			c.End = &f
		case "tags":
			tags, err := asStringSlice(val)
			if err != nil {
				return Criteria{}, errors.Wrapf(ErrInvalidCriteria, "tags: %v", err)
			}
			c.Tags = tags
		default:
			return Criteria{}, errors.Wrapf(ErrInvalidCriteria, "unknown criteria key %q", key)
		}
	}
	return c, nil
}

func compileAnchored(val interface{}) (*regexp.Regexp, error) {
	s, ok := val.(string)
	if !ok {
		return nil, errors.New("expected a string")
	}
	return regexp.Compile("^(?:" + s + ")")
}

func asFloat(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, errors.New("expected a number")
	}
}

func asStringSlice(val interface{}) ([]string, error) {
	list, ok := val.([]interface{})
	if !ok {
		return nil, errors.New("expected a list of strings")
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("expected a list of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

// Match reports whether e satisfies every criterion set on c. Missing
// criteria are treated as "accept".
func (c Criteria) Match(e Event) bool {
	if c.ID != nil && !c.ID.MatchString(e.ID) {
		return false
	}
	if c.Source != nil && !c.Source.MatchString(e.Source) {
		return false
	}
	if c.Content != nil && !c.Content.MatchString(e.Content) {
		return false
	}
	if c.Start != nil && e.Timestamp < *c.Start {
		return false
	}
	if c.End != nil && e.Timestamp > *c.End {
		return false
	}
	for _, tag := range c.Tags {
		if !e.HasTag(tag) {
			return false
		}
	}
	return true
}
