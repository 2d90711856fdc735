/*
Package resilience provides a circuit breaker for template backends.

The remote template registry is the only network dependency on the
execution path. When it starts failing, the breaker opens and lookups fail
fast until a probe succeeds.

# Usage

	breaker := resilience.New("template-registry", resilience.Settings{
		Timeout: 30 * time.Second,
		IsFailure: func(err error) bool {
			return !errors.Is(err, tplerr.ErrTemplateNotFound)
		},
		Logger: logger,
	})

	tpl, err := resilience.Do(ctx, breaker, func(ctx context.Context) (*types.Template, error) {
		return fetch(ctx, id)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
