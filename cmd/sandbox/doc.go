// Command sandbox runs and inspects scraping templates.
//
// Subcommands:
//   - serve: the sandbox service with its ops HTTP server
//   - validate: static checks on a template document or code file
//   - run: one full execution through the template client
//   - check: domain and keyword access decisions for a template
//
// Configuration comes from the environment (12-factor); see
// internal/infrastructure/config for the variables and their defaults.
//
// Usage:
//
//	# Ops server backed by a template directory with hot reload
//	TEMPLATE_STORE=file TEMPLATE_DIR=./templates sandbox serve
//
//	# Development logging
//	sandbox --dev run products --file products.yaml --html page.html
package main
