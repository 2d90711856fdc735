/*
Package store resolves templates by id.

Backends:
  - MemoryStore: a map, for tests and one-off CLI runs
  - SQLiteStore: a templates table in SQLite (modernc, WAL)
  - FileStore: YAML, TOML and JSON documents in a directory, reloaded on change
  - RemoteStore: an HTTP registry behind retries and a circuit breaker

Every backend reports an unknown id as a tplerr.TemplateNotFound error and
fills the same defaults: status published, language javascript, one
credit per run and a generated UUID when none is stored.
*/
package store
