package validator

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// Transpile returns the JavaScript body for src. JavaScript passes through
// unchanged; TypeScript has its types stripped without lowering any syntax.
func Transpile(src types.Code) (string, error) {
	if src.Language != types.LanguageTypeScript {
		return src.Source, nil
	}

	// The body may use top-level return and await, which are only legal
	// inside a function.
	result := api.Transform(WrapAsync(src.Source)+";", api.TransformOptions{
		Loader:     api.LoaderTS,
		Target:     api.ESNext,
		Sourcefile: "template.ts",
	})
	if len(result.Errors) > 0 {
		return "", tplerr.New(tplerr.InvalidSyntax, "%s", formatMessage(result.Errors[0]))
	}

	out := string(result.Code)
	start := strings.IndexByte(out, '{')
	end := strings.LastIndexByte(out, '}')
	if start < 0 || end <= start {
		return "", tplerr.New(tplerr.InvalidSyntax, "typescript body could not be recovered after transpiling")
	}
	return out[start+1 : end], nil
}

func formatMessage(m api.Message) string {
	if m.Location == nil {
		return m.Text
	}
	// Line 1 is the wrapper added above.
	line := m.Location.Line - 1
	if line < 1 {
		line = 1
	}
	return fmt.Sprintf("%s (line %d)", m.Text, line)
}
