/*
Package runtime executes template code on the goja JavaScript engine.

# Strategies

The template's trust flag picks the execution path:

 1. Ambient (trusted): the body is compiled as an async function with a
    fixed parameter list (context, template, variables, page, console,
    preNav, sleep). page is a capability proxy over the borrowed page
    handle.
 2. Isolated (untrusted): a fresh VM with dynamic code evaluation removed,
    builtins frozen and no page handle at all.

# Limits

Every execution races a wall-clock timeout. A VM that overruns is
interrupted and abandoned; its execution slot is released only once the
VM goroutine has actually returned. Page calls are bounded by the proxy's
call budget.

# Usage Example

	exec := runtime.New(runtime.Config{Timeout: 30 * time.Second}, runtime.Deps{
		Logger:  logger,
		Metrics: metrics,
	})

	out, err := exec.Execute(ctx, tpl, ec)
	if err != nil {
		info := tplerr.InfoOf(err)
		logger.Warn("Template failed", zap.String("code", string(info.Code)))
	}

context.html is resolved from captured HTML, then the decoded response
body, then the live page.
*/
package runtime
