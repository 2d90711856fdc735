/*
Package client is the template execution orchestrator used by the crawl
engine.

A call to ExecuteTemplate resolves the template through a store, rejects
early on access control and code validation, resolves variables, runs the
code in the sandbox executor and records the outcome in the execution log.
Rejections are returned both as an error and as a structured ExecuteResult.

# Usage Example

	c, err := client.New(client.Options{
	    Store:     store.NewMemoryStore(tpl),
	    Validator: validator.New(nil, validator.DefaultLimits(), logger, metrics, tracer),
	    Executor:  runtime.New(runtime.DefaultConfig(), runtime.Deps{Logger: logger}),
	    Recorder:  execlog.NewZapRecorder(logger),
	    CacheTTL:  5 * time.Minute,
	})
	res, err := c.ExecuteTemplate(ctx, "products", &types.ExecutionContext{
	    Request: types.Request{URL: "https://shop.example.com/p/1"},
	})
*/
package client
