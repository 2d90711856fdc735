package runtime

import (
	"github.com/dop251/goja"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/validator"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
)

// lockdown removes dynamic code evaluation and freezes the builtins an
// untrusted template could otherwise tamper with.
const lockdown = `(function () {
	'use strict';
	var blocked = function () { throw new TypeError('dynamic code evaluation is disabled'); };
	var fnProtos = [
		Function.prototype,
		Object.getPrototypeOf(async function () {}),
		Object.getPrototypeOf(function* () {})
	];
	for (var i = 0; i < fnProtos.length; i++) {
		Object.defineProperty(fnProtos[i], 'constructor', { value: blocked, writable: false, enumerable: false, configurable: false });
		Object.freeze(fnProtos[i]);
	}
	var roots = [Object, Array, String, Number, Boolean, Symbol, Date, RegExp, Promise, Map, Set, WeakMap, WeakSet, JSON, Math];
	for (var j = 0; j < roots.length; j++) {
		if (roots[j].prototype) Object.freeze(roots[j].prototype);
		Object.freeze(roots[j]);
	}
})();`

var lockdownProgram = goja.MustCompile("lockdown", lockdown, true)

// hiddenGlobals are removed from an isolated VM after lockdown
var hiddenGlobals = []string{"eval", "Function", "require", "process", "module", "exports", "globalThis"}

// runIsolated executes an untrusted template in a fresh, locked-down VM
// holding only inert data. No page handle exists in this path.
func (s *session) runIsolated(html string) (goja.Value, error) {
	if _, err := s.vm.RunProgram(lockdownProgram); err != nil {
		return nil, tplerr.Wrap(tplerr.RuntimeError, err, "sandbox lockdown failed: %s", err.Error())
	}

	ctxObj := s.contextObject(html)
	globals := map[string]interface{}{
		"context":   ctxObj,
		"template":  s.templateObject(),
		"variables": ctxObj.Get("variables"),
		"page":      goja.Null(),
		"console":   s.consoleObject(),
		"preNav":    ctxObj.Get("preNav"),
	}
	for name, v := range globals {
		if err := s.vm.Set(name, v); err != nil {
			return nil, tplerr.Wrap(tplerr.RuntimeError, err, "sandbox setup failed: %s", err.Error())
		}
	}

	global := s.vm.GlobalObject()
	for _, name := range hiddenGlobals {
		_ = global.Delete(name)
	}

	body, err := validator.Transpile(s.tpl.Code)
	if err != nil {
		return nil, err
	}
	prg, err := goja.Compile(s.tpl.TemplateID, validator.WrapAsync(body)+"()", false)
	if err != nil {
		return nil, tplerr.Wrap(tplerr.InvalidSyntax, err, "%s", err.Error())
	}
	return s.vm.RunProgram(prg)
}
