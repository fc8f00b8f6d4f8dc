package console

import "testing"

func TestInputPanelWidthClampsOnNarrowTerminals(t *testing.T) {
	p := NewInputPanel("webpilot> ")

	p.SetSize(3, 1)
	if p.input.Width < 1 {
		t.Fatalf("input width = %d on a narrow terminal, want >= 1", p.input.Width)
	}

	p.SetSize(80, 1)
	if got := p.input.Width; got != 80-len("webpilot> ")-1 {
		t.Fatalf("input width = %d at width 80, want prompt-adjusted width", got)
	}
}
