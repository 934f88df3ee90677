package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
)

func key(s string) tea.KeyPressMsg {
	switch s {
	case "up":
		return tea.KeyPressMsg{Code: tea.KeyUp}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	}
	r := []rune(s)[0]
	return tea.KeyPressMsg{Code: r, Text: s}
}

func TestChoice_Navigation(t *testing.T) {
	c := NewChoice([]string{"uno", "dos", "tres", "cuatro"})
	c, _ = c.Update(key("down"))
	c, _ = c.Update(key("down"))
	if c.Value() != "tres" {
		t.Fatalf("Value() = %q, want tres", c.Value())
	}
	c, _ = c.Update(key("up"))
	if c.Value() != "dos" {
		t.Fatalf("Value() = %q, want dos", c.Value())
	}
	c, _ = c.Update(key("4"))
	if c.Value() != "cuatro" {
		t.Fatalf("Value() = %q, want cuatro", c.Value())
	}
	c, _ = c.Update(key("a"))
	if c.Value() != "uno" {
		t.Fatalf("Value() = %q, want uno", c.Value())
	}
}

func TestChoice_RevealLocks(t *testing.T) {
	c := NewChoice([]string{"uno", "dos", "tres", "cuatro"}).Select("dos")
	c = c.Reveal("dos", "tres")
	if !c.Locked || c.Chosen != 1 || c.Correct != 2 {
		t.Fatalf("unexpected reveal state %+v", c)
	}
	c, _ = c.Update(key("down"))
	if c.Selected != 1 {
		t.Fatal("locked choice must ignore keys")
	}
	if !strings.Contains(c.View(), "tres") {
		t.Fatal("view missing options")
	}
}

func TestMenu_SkipsDisabled(t *testing.T) {
	picked := ""
	m := NewMenu([]MenuItem{
		{Label: "Story Time", Disabled: true},
		{Label: "Grammar Gauntlet", Action: func() tea.Cmd { picked = "grammar"; return nil }},
		{Label: "Quit"},
	})
	if m.Selected != 1 {
		t.Fatalf("expected first enabled item selected, got %d", m.Selected)
	}
	m, _ = m.Update(key("up"))
	if m.Selected != 1 {
		t.Fatalf("cursor moved onto a disabled item")
	}
	m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if picked != "grammar" {
		t.Fatalf("expected grammar action, got %q", picked)
	}
}

func TestTextInput_DisabledIgnoresKeys(t *testing.T) {
	in := NewTextInput("answer", 0)
	in.Disabled = true
	in, _ = in.Update(key("x"))
	if in.Value() != "" {
		t.Fatalf("disabled input accepted %q", in.Value())
	}
	in.Disabled = false
	in, _ = in.Update(key("x"))
	if in.Value() != "x" {
		t.Fatalf("Value() = %q, want x", in.Value())
	}
}

func TestBar_Width(t *testing.T) {
	if !strings.Contains(Bar("Grammar", 0.5, 40), "50%") {
		t.Fatal("bar missing percentage")
	}
}
