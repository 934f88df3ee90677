package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lingua/internal/ui/theme"
)

var choiceLabels = []string{"A", "B", "C", "D", "E", "F"}

// Choice is a multiple-choice selector. Once locked it shows the
// learner's pick and, if known, the right option.
type Choice struct {
	Options  []string
	Selected int
	Locked   bool
	Chosen   int
	Correct  int
}

// NewChoice creates a selector over options.
func NewChoice(options []string) Choice {
	return Choice{Options: options, Chosen: -1, Correct: -1}
}

// Select moves the cursor to the option equal to value, if present.
func (c Choice) Select(value string) Choice {
	for i, o := range c.Options {
		if o == value {
			c.Selected = i
		}
	}
	return c
}

// Update handles arrow keys and A-D / 1-4 shortcuts.
func (c Choice) Update(msg tea.Msg) (Choice, tea.Cmd) {
	if c.Locked {
		return c, nil
	}
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return c, nil
	}
	switch key := kmsg.String(); key {
	case "up", "k":
		if c.Selected > 0 {
			c.Selected--
		}
	case "down", "j":
		if c.Selected < len(c.Options)-1 {
			c.Selected++
		}
	default:
		for i := range c.Options {
			if key == fmt.Sprint(i+1) || strings.EqualFold(key, choiceLabels[i%len(choiceLabels)]) {
				c.Selected = i
			}
		}
	}
	return c, nil
}

// Value returns the option under the cursor.
func (c Choice) Value() string {
	if c.Selected < 0 || c.Selected >= len(c.Options) {
		return ""
	}
	return c.Options[c.Selected]
}

// Reveal locks the selector showing chosen and, when known, correct.
func (c Choice) Reveal(chosen, correct string) Choice {
	c.Locked = true
	c.Chosen, c.Correct = -1, -1
	for i, o := range c.Options {
		if o == chosen {
			c.Chosen = i
		}
		if o == correct {
			c.Correct = i
		}
	}
	return c
}

// View renders the options.
func (c Choice) View() string {
	var b strings.Builder
	for i, opt := range c.Options {
		prefix := "  "
		if i == c.Selected && !c.Locked {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s)  %s", prefix, choiceLabels[i%len(choiceLabels)], opt)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		switch {
		case c.Locked && i == c.Correct:
			style = theme.Correct
		case c.Locked && i == c.Chosen:
			style = theme.Incorrect
		case c.Locked:
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		case i == c.Selected:
			style = theme.Selected
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
