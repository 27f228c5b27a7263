package instruction

import (
	"strings"
	"testing"
)

func TestBuilder_Order(t *testing.T) {
	// WHAT: The builder preserves insertion order in the wire form.
	// WHY: The collaborator executes instructions strictly in sequence.
	var b Builder
	instrs := b.Navigate("https://example.com").
		FreezeAnimations().
		HideSelectors([]string{".ad"}).
		Screenshot("actual", "").
		Instructions()

	wantTools := []string{ToolNavigate, ToolFreezeAnimations, ToolHideSelectors, ToolScreenshot}
	if len(instrs) != len(wantTools) {
		t.Fatalf("instructions = %d, want %d", len(instrs), len(wantTools))
	}
	for i, want := range wantTools {
		if instrs[i].Tool != want {
			t.Errorf("instr %d tool = %q, want %q", i, instrs[i].Tool, want)
		}
	}
}

func TestBuilder_EmptyHideList(t *testing.T) {
	// WHAT: An empty selector list produces no hide step.
	// WHY: The hide instruction only appears when exclusions were given.
	var b Builder
	instrs := b.HideSelectors(nil).Screenshot("actual", "").Instructions()
	if len(instrs) != 1 || instrs[0].Tool != ToolScreenshot {
		t.Errorf("instructions = %+v, want single screenshot", instrs)
	}
}

func TestHideSelectors_Escaping(t *testing.T) {
	// WHAT: Double quotes in selectors are escaped in the query param.
	// WHY: The collaborator embeds the list in a quoted DOM query.
	in := HideSelectors{Selectors: []string{`[data-test="x"]`, ".banner"}}.Instruction()
	query, _ := in.Params["query"].(string)
	if !strings.Contains(query, `\"x\"`) {
		t.Errorf("query = %q, want escaped double quotes", query)
	}
	if !strings.Contains(query, ".banner") {
		t.Errorf("query = %q, want both selectors joined", query)
	}
}

func TestFreezeAnimations_DefaultStyle(t *testing.T) {
	// WHAT: An empty style falls back to the default freeze stylesheet.
	// WHY: Callers should not need to know the CSS payload.
	in := FreezeAnimations{}.Instruction()
	style, _ := in.Params["style"].(string)
	if !strings.Contains(style, "animation: none") || !strings.Contains(style, "transition: none") {
		t.Errorf("style = %q, want animation and transition suppression", style)
	}
}

func TestScreenshot_Params(t *testing.T) {
	// WHAT: Screenshot carries its name, base64 encoding, and an optional
	// scoping selector.
	// WHY: The collaborator names the capture so the engine can match it on
	// the next call.
	in := Screenshot{Name: "baseline", Selector: "#app"}.Instruction()
	if in.Params["name"] != "baseline" || in.Params["encoding"] != "base64" || in.Params["selector"] != "#app" {
		t.Errorf("params = %+v", in.Params)
	}

	unscoped := Screenshot{Name: "actual"}.Instruction()
	if _, ok := unscoped.Params["selector"]; ok {
		t.Error("unscoped screenshot must omit the selector param")
	}
}
