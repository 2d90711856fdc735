package runtime

import (
	"time"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/validator"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
)

// ambientParams is the fixed parameter list of a trusted template body.
const ambientParams = "context, template, variables, page, console, preNav, sleep"

// runAmbient executes a trusted template as an async function with an
// explicit parameter list. The page parameter is the capability proxy;
// nothing else of the host is reachable.
func (s *session) runAmbient(html string) (goja.Value, error) {
	body, err := validator.Transpile(s.tpl.Code)
	if err != nil {
		return nil, err
	}
	src := "(async function(" + ambientParams + ") {\n" + body + "\n})"
	prg, err := goja.Compile(s.tpl.TemplateID, src, false)
	if err != nil {
		return nil, tplerr.Wrap(tplerr.InvalidSyntax, err, "%s", err.Error())
	}
	fnValue, err := s.vm.RunProgram(prg)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		return nil, tplerr.New(tplerr.RuntimeError, "template body did not compile to a function")
	}

	ctxObj := s.contextObject(html)
	return fn(goja.Undefined(),
		ctxObj,
		s.templateObject(),
		ctxObj.Get("variables"),
		s.newPageObject(),
		s.consoleObject(),
		ctxObj.Get("preNav"),
		s.vm.ToValue(s.sleep),
	)
}

// sleep blocks the VM for up to ms milliseconds, ending early with the
// execution.
func (s *session) sleep(call goja.FunctionCall) goja.Value {
	d := time.Duration(call.Argument(0).ToInteger()) * time.Millisecond
	if d <= 0 {
		return goja.Undefined()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.ctx.Done():
	}
	return goja.Undefined()
}
