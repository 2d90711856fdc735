package pageproxy

// Method groups of the default allow-list.
var (
	NavigationMethods = []string{
		"goto", "goBack", "goForward", "reload", "url",
		"waitForNavigation", "waitForLoadState", "waitForURL",
	}
	InteractionMethods = []string{
		"click", "dblclick", "tap", "hover", "focus", "type", "fill", "press",
		"select", "selectOption", "check", "uncheck", "dragAndDrop",
	}
	EvaluationMethods = []string{
		"evaluate", "evaluateHandle", "$eval", "$$eval", "waitForFunction",
	}
	QueryMethods = []string{
		"$", "$$", "querySelector", "querySelectorAll", "locator", "waitForSelector",
		"textContent", "innerText", "innerHTML", "inputValue",
		"isVisible", "isHidden", "isEnabled", "isChecked",
	}
	ContentMethods   = []string{"content", "title"}
	CaptureMethods   = []string{"screenshot", "pdf"}
	FrameMethods     = []string{"frames", "mainFrame", "frame"}
	AttributeMethods = []string{"getAttribute"}
	UtilityMethods   = []string{
		"viewport", "viewportSize", "bringToFront", "isClosed",
		"waitForTimeout", "waitForEvent", "waitForRequest", "waitForResponse",
	}
)

// DefaultMethods returns the built-in allow-list.
func DefaultMethods() []string {
	groups := [][]string{
		NavigationMethods, InteractionMethods, EvaluationMethods, QueryMethods,
		ContentMethods, CaptureMethods, FrameMethods, AttributeMethods, UtilityMethods,
	}
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// evalMethods run caller-supplied code inside the page.
var evalMethods = toSet(EvaluationMethods)

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
