package tui

import (
	"slices"
	"strings"
)

// selector cycles through a fixed list of options.
type selector struct {
	label   string
	options []string
	cursor  int
	focused bool
}

func newSelector(label string, options []string) selector {
	return selector{label: label, options: append([]string(nil), options...)}
}

// setOptions replaces the options, keeping the current value selected when
// it is still offered.
func (s *selector) setOptions(options []string) {
	cur := s.value()
	s.options = append([]string(nil), options...)
	s.cursor = 0
	if i := slices.Index(s.options, cur); i >= 0 {
		s.cursor = i
	}
}

// value returns the selected option, or "" when there are none.
func (s selector) value() string {
	if len(s.options) == 0 {
		return ""
	}
	return s.options[s.cursor]
}

func (s selector) empty() bool { return len(s.options) == 0 }

func (s *selector) next() {
	if len(s.options) > 0 {
		s.cursor = (s.cursor + 1) % len(s.options)
	}
}

func (s *selector) prev() {
	if len(s.options) > 0 {
		s.cursor = (s.cursor - 1 + len(s.options)) % len(s.options)
	}
}

func (s selector) view() string {
	label := s.label + ": "
	if s.focused {
		label = focusedStyle.Render(label)
	}
	if len(s.options) == 0 {
		return label + dimStyle.Render("(none)")
	}
	var sb strings.Builder
	for i, o := range s.options {
		if i > 0 {
			sb.WriteString("  ")
		}
		if i == s.cursor {
			if s.focused {
				sb.WriteString(focusedStyle.Render("[" + o + "]"))
			} else {
				sb.WriteString("[" + o + "]")
			}
			continue
		}
		sb.WriteString(dimStyle.Render(" " + o + " "))
	}
	return label + sb.String()
}
