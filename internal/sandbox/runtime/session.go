package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/prenav"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/access"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/pageproxy"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// session is the state of one execution. Everything in it belongs to the
// VM goroutine except vm.Interrupt and the console buffer.
type session struct {
	ctx    context.Context
	vm     *goja.Runtime
	tpl    *types.Template
	ec     *types.ExecutionContext
	proxy  *pageproxy.Proxy
	access *access.Checker
	preNav *prenav.Scope
	logger *zap.Logger

	jsonParse     goja.Callable
	jsonStringify goja.Callable

	mu      sync.Mutex
	console []LogEntry
}

func newSession(ctx context.Context, cfg Config, deps Deps, tpl *types.Template, ec *types.ExecutionContext, logger *zap.Logger) *session {
	vm := goja.New()
	vm.SetMaxCallStackSize(cfg.MaxCallStackSize)

	s := &session{
		ctx:    ctx,
		vm:     vm,
		tpl:    tpl,
		ec:     ec,
		access: deps.Access,
		preNav: prenav.Bind(deps.PreNav, ec.JobID, ec.RequestID, cfg.PreNavWait),
		logger: logger,
	}
	if s.access == nil {
		s.access = access.New(logger, deps.Metrics)
	}

	json := vm.Get("JSON").ToObject(vm)
	s.jsonParse, _ = goja.AssertFunction(json.Get("parse"))
	s.jsonStringify, _ = goja.AssertFunction(json.Get("stringify"))

	if ec.Page != nil {
		s.proxy = pageproxy.New(ec.Page, pageproxy.Config{
			MaxCalls:       cfg.MaxPageCalls,
			AllowedMethods: cfg.AllowedMethods,
		}, pageproxy.Options{
			TemplateID: tpl.TemplateID,
			Scanner:    deps.Scanner,
			Guard:      s.guardNavigation,
			Logger:     logger,
			Metrics:    deps.Metrics,
		})
	}
	return s
}

// throw raises err inside the VM. Must only be called from a native
// function invoked by template code.
func (s *session) throw(err error) {
	panic(s.vm.NewGoError(err))
}

func (s *session) guardNavigation(target string) error {
	return s.access.ValidateURL(target, s.tpl.AllowedDomains).Err()
}

// toJS converts host data into plain JS values. The JSON round trip keeps
// Go maps and slices from leaking into the VM as host-backed objects.
func (s *session) toJS(v interface{}) goja.Value {
	if v == nil {
		return goja.Null()
	}
	switch v.(type) {
	case string, bool, int, int64, float64:
		return s.vm.ToValue(v)
	}
	raw, err := sonic.Marshal(v)
	if err != nil {
		return goja.Null()
	}
	out, err := s.jsonParse(goja.Undefined(), s.vm.ToValue(string(raw)))
	if err != nil {
		return goja.Null()
	}
	return out
}

// fromJS converts a template's return value into JSON-safe host data.
func (s *session) fromJS(v goja.Value) (interface{}, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	raw, err := s.jsonStringify(goja.Undefined(), v)
	if err != nil {
		return nil, tplerr.Wrap(tplerr.RuntimeError, err, "template result is not serializable: %s", err.Error())
	}
	if goja.IsUndefined(raw) {
		return nil, nil
	}
	var out interface{}
	if err := sonic.UnmarshalString(raw.String(), &out); err != nil {
		return nil, tplerr.Wrap(tplerr.RuntimeError, err, "template result is not serializable: %s", err.Error())
	}
	return out, nil
}

// contextObject builds the context argument handed to template code.
func (s *session) contextObject(html string) *goja.Object {
	vm := s.vm
	ec := s.ec
	doc := NewDocument(html)

	obj := vm.NewObject()
	_ = obj.Set("templateId", s.tpl.TemplateID)
	_ = obj.Set("jobId", ec.JobID)
	_ = obj.Set("requestId", ec.RequestID)
	_ = obj.Set("request", s.toJS(ec.Request))
	_ = obj.Set("url", ec.Request.URL)
	_ = obj.Set("searchQuery", ec.SearchQuery)
	_ = obj.Set("html", html)
	_ = obj.Set("title", doc.Title())
	_ = obj.Set("text", doc.Text())
	_ = obj.Set("variables", s.toJS(ec.Variables))
	_ = obj.Set("userData", s.toJS(ec.UserData))
	_ = obj.Set("data", s.toJS(ec.ScrapeResult.Snapshot()))
	if ec.Response != nil {
		_ = obj.Set("response", s.toJS(map[string]interface{}{
			"status":  ec.Response.Status,
			"headers": ec.Response.Headers,
		}))
	} else {
		_ = obj.Set("response", goja.Null())
	}

	_ = obj.Set("query", func(call goja.FunctionCall) goja.Value {
		selector := call.Argument(0).String()
		els, err := doc.Query(selector)
		if err != nil {
			s.throw(tplerr.Wrap(tplerr.RuntimeError, err, "invalid selector %q: %s", selector, err.Error()))
		}
		return s.toJS(els)
	})
	_ = obj.Set("xpath", func(call goja.FunctionCall) goja.Value {
		expr := call.Argument(0).String()
		els, err := doc.XPath(expr)
		if err != nil {
			s.throw(tplerr.Wrap(tplerr.RuntimeError, err, "invalid xpath %q: %s", expr, err.Error()))
		}
		return s.toJS(els)
	})
	_ = obj.Set("getCookies", s.getCookies)
	_ = obj.Set("isUrlAllowed", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(s.access.ValidateURL(call.Argument(0).String(), s.tpl.AllowedDomains).IsValid)
	})
	_ = obj.Set("preNav", s.preNavObject())
	return obj
}

// getCookies reads cookies through the proxy budget. Without a page, or for
// untrusted templates, there is nothing to read.
func (s *session) getCookies(call goja.FunctionCall) goja.Value {
	if s.proxy == nil || !s.tpl.Trusted {
		return s.vm.NewArray()
	}
	urls := make([]string, 0, len(call.Arguments))
	for _, a := range call.Arguments {
		urls = append(urls, a.String())
	}
	cookies, err := s.proxy.Cookies(s.ctx, urls...)
	if err != nil {
		s.throw(err)
	}
	return s.toJS(cookies)
}

func (s *session) preNavObject() *goja.Object {
	vm := s.vm
	obj := vm.NewObject()
	_ = obj.Set("wait", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		var timeout time.Duration
		if opts := call.Argument(1); !goja.IsUndefined(opts) && !goja.IsNull(opts) {
			if ms := opts.ToObject(vm).Get("timeoutMs"); ms != nil && !goja.IsUndefined(ms) {
				timeout = time.Duration(ms.ToInteger()) * time.Millisecond
			}
		}
		v, found, err := s.preNav.Wait(s.ctx, key, timeout)
		if err != nil {
			s.throw(tplerr.Wrap(tplerr.RuntimeError, err, "preNav.wait(%q): %s", key, err.Error()))
		}
		if !found {
			return goja.Null()
		}
		return s.toJS(v)
	})
	_ = obj.Set("get", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		v, found, err := s.preNav.Get(s.ctx, key)
		if err != nil {
			s.throw(tplerr.Wrap(tplerr.RuntimeError, err, "preNav.get(%q): %s", key, err.Error()))
		}
		if !found {
			return goja.Null()
		}
		return s.toJS(v)
	})
	_ = obj.Set("has", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		ok, err := s.preNav.Has(s.ctx, key)
		if err != nil {
			s.throw(tplerr.Wrap(tplerr.RuntimeError, err, "preNav.has(%q): %s", key, err.Error()))
		}
		return vm.ToValue(ok)
	})
	return obj
}

// templateObject is a frozen copy of the template configuration. Source
// code is not part of it.
func (s *session) templateObject() goja.Value {
	t := s.tpl
	v := s.toJS(map[string]interface{}{
		"templateId":      t.TemplateID,
		"uuid":            t.UUID,
		"name":            t.Name,
		"status":          t.Status,
		"trusted":         t.Trusted,
		"language":        t.Code.Language,
		"allowedDomains":  t.AllowedDomains,
		"allowedKeywords": t.AllowedKeywords,
		"variables":       t.Variables,
		"creditsPerRun":   t.CreditsPerRun,
	})
	s.deepFreeze(v)
	return v
}

func (s *session) deepFreeze(v goja.Value) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return
	}
	for _, k := range obj.Keys() {
		s.deepFreeze(obj.Get(k))
	}
	freeze, _ := goja.AssertFunction(s.vm.Get("Object").ToObject(s.vm).Get("freeze"))
	_, _ = freeze(goja.Undefined(), obj)
}

func (s *session) consoleObject() *goja.Object {
	obj := s.vm.NewObject()
	for _, level := range []string{"log", "warn", "error"} {
		_ = obj.Set(level, s.consoleWriter(level))
	}
	for _, level := range []string{"info", "debug", "trace"} {
		_ = obj.Set(level, func(goja.FunctionCall) goja.Value {
			s.throw(tplerr.New(tplerr.CapabilityDenied,
				"console.%s is not available; use console.log or console.warn", level).WithTemplate(s.tpl.TemplateID))
			return goja.Undefined()
		})
	}
	return obj
}

func (s *session) consoleWriter(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = s.display(a)
		}
		msg := strings.Join(parts, " ")

		if level == "log" {
			s.logger.Info("Template console", zap.String("level", level), zap.String("message", msg))
		} else {
			s.logger.Warn("Template console", zap.String("level", level), zap.String("message", msg))
		}

		s.mu.Lock()
		if len(s.console) < maxConsoleEntries {
			s.console = append(s.console, LogEntry{Level: level, Message: msg, Time: time.Now()})
		}
		s.mu.Unlock()
		return goja.Undefined()
	}
}

// display renders a console argument. Objects are shown as JSON.
func (s *session) display(v goja.Value) (out string) {
	defer func() {
		if recover() != nil {
			out = "[object]"
		}
	}()
	if _, ok := v.(*goja.Object); ok {
		if raw, err := s.jsonStringify(goja.Undefined(), v); err == nil && !goja.IsUndefined(raw) {
			return raw.String()
		}
	}
	return v.String()
}

func (s *session) entries() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogEntry(nil), s.console...)
}

func (s *session) pageCalls() int {
	if s.proxy == nil {
		return 0
	}
	return s.proxy.Calls()
}

// settle unwraps the promise returned by an async template body.
func (s *session) settle(v goja.Value) (goja.Value, error) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return v, nil
	}
	p, ok := obj.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, rejection(p.Result())
	default:
		return nil, tplerr.New(tplerr.RuntimeError, "template promise never settled")
	}
}

// rejection recovers the error behind a rejected promise. Host errors raised
// through throw come back unchanged.
func rejection(v goja.Value) error {
	obj, ok := v.(*goja.Object)
	if !ok {
		if v == nil {
			return tplerr.New(tplerr.RuntimeError, "template rejected without a reason")
		}
		return tplerr.New(tplerr.RuntimeError, "%s", v.String())
	}
	if gv := obj.Get("value"); gv != nil {
		if err, ok := gv.Export().(error); ok {
			return err
		}
	}
	msg := obj.Get("message")
	if msg == nil || goja.IsUndefined(msg) {
		return tplerr.New(tplerr.RuntimeError, "%s", v.String())
	}
	name := obj.Get("name")
	if name == nil || goja.IsUndefined(name) {
		return tplerr.New(tplerr.RuntimeError, "%s", msg.String())
	}
	return tplerr.New(tplerr.RuntimeError, "%s", fmt.Sprintf("%s: %s", name.String(), msg.String()))
}
