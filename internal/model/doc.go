package model

// Package model defines domain data structures shared across the daemon:
// download jobs, status enums, and queue lifecycle events. Structures are
// designed for JSON serialization (durable records, event forwarding) and
// explicit state transitions.
