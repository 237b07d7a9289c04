// Package connectors holds the per-platform channel adapters. Each adapter
// owns exactly one rate limiter and one token store: every data-plane call is
// scheduled through the limiter and authenticated through the store, so
// platform request pacing and silent token refresh stay invisible to callers.
//
// Adapters translate between the platforms' wire formats and the domain
// inventory model; they hold no business rules beyond what their platform's
// API shape forces on them.
package connectors
