package marker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vmihailenco/tagparser/v2"
)

// TagKey is the struct tag key read by the scanner.
const TagKey = "glimpse"

// ParseTag parses a `glimpse` struct tag for the field name. The first
// unkeyed element is the label; the rest are options:
//
//	glimpse:"HP,segment:tick,format:%.1f,gt:10,tags:combat|stats,redact"
//
// ParseTag returns false for the tag "-".
func ParseTag(field, tag string) (Member, bool, error) {
	if tag == "-" {
		return Member{}, false, nil
	}

	parsed := tagparser.Parse(tag)
	m := newMember(KindField, field, nil)
	if parsed.Name != "" {
		m.Options.Label = parsed.Name
	}

	// Options are applied in key order so errors are reported deterministically.
	keys := make([]string, 0, len(parsed.Options))
	for k := range parsed.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := applyTagOption(&m, key, parsed.Options[key]); err != nil {
			return Member{}, false, fmt.Errorf("field %s: %w", field, err)
		}
	}
	return m, true, nil
}

func applyTagOption(m *Member, key, value string) error {
	if op, ok := ParseOp(key); ok {
		m.Condition = &Condition{Kind: Comparison, Op: op, Literal: value}
		return nil
	}

	var err error
	switch key {
	case "label":
		m.Options.Label = value
	case "segment":
		m.Segment, err = ParseSegment(value)
	case "format":
		m.Options.Format = value
	case "font":
		m.Options.FontSize, err = tagInt(key, value)
	case "pos":
		m.Options.Position, err = tagInt(key, value)
	case "group":
		m.Options.Group = value
	case "indent":
		m.Options.Indent, err = tagInt(key, value)
	case "elem":
		m.Options.ElementIndent, err = tagInt(key, value)
	case "index":
		m.Options.ShowIndex = true
	case "prefix":
		m.Options.Prefix = value
	case "color":
		m.Options.Color = value
	case "tags":
		for _, t := range strings.Split(value, "|") {
			if t = strings.TrimSpace(t); t != "" {
				m.Tags = append(m.Tags, t)
			}
		}
	case "processor":
		m.Processor = value
	case "event":
		m.UpdateEvent = value
	case "if":
		m.Condition = &Condition{Kind: ByMember, Member: value}
	case "when":
		m.Condition = &Condition{Kind: EventDriven, Member: value}
	case "cond":
		check, ok := ParseCheck(value)
		if !ok {
			return fmt.Errorf("unknown condition %q", value)
		}
		m.Condition = &Condition{Kind: Predicate, Check: check}
	case "expr":
		m.Condition = &Condition{Kind: Expression, Expr: value}
	case "redact":
		m.Redact = true
	default:
		return fmt.Errorf("unknown %s tag option %q", TagKey, key)
	}
	return err
}

func tagInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", key, err)
	}
	return n, nil
}
