package runtime

import (
	"github.com/dop251/goja"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/pageproxy"
)

// pageObject exposes a pageproxy.Proxy to template code. Every property
// read yields a dispatcher, so unknown methods fail when called with the
// proxy's denial rather than as undefined functions. Writes and deletes
// are refused.
type pageObject struct {
	s     *session
	proxy *pageproxy.Proxy
}

// newPageObject returns the JS page handle, or null without a page.
func (s *session) newPageObject() goja.Value {
	if s.proxy == nil {
		return goja.Null()
	}
	obj := s.vm.NewDynamicObject(&pageObject{s: s, proxy: s.proxy})
	_ = obj.SetPrototype(nil)
	return obj
}

func (p *pageObject) Get(key string) goja.Value {
	switch key {
	case "then", "toJSON":
		// Keeps await and JSON.stringify from treating the handle as a
		// thenable or serializable value.
		return nil
	}
	return p.s.vm.ToValue(p.dispatcher(key))
}

func (p *pageObject) Set(key string, _ goja.Value) bool {
	p.s.throw(p.proxy.DenyMutation("set", key))
	return false
}

func (p *pageObject) Has(key string) bool {
	return p.proxy.Allowed(key)
}

func (p *pageObject) Delete(key string) bool {
	p.s.throw(p.proxy.DenyMutation("delete", key))
	return false
}

func (p *pageObject) Keys() []string {
	return p.proxy.Methods()
}

func (p *pageObject) dispatcher(method string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = pageArg(a)
		}
		res, err := p.proxy.Call(p.s.ctx, method, args...)
		if err != nil {
			p.s.throw(err)
		}
		return p.s.toJS(res)
	}
}

// pageArg converts an argument for the host page. Functions travel as
// their source text, which is what in-page evaluation runs and what the
// proxy rescans.
func pageArg(v goja.Value) interface{} {
	if _, ok := goja.AssertFunction(v); ok {
		return v.String()
	}
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}
