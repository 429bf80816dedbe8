// Package application provides application initialization and dependency wiring.
// It seeds the session storage from configuration, attaches the recomputing
// session, and builds the handlers, routers and HTTP server, keeping the main
// package focused on CLI parsing and orchestration.
package application
