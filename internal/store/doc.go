// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing the selection and evaluation
// rules to remain independent of specific database technologies.
//
// All learner state lives behind these interfaces. Selection and
// evaluation read what they need at the start of a call and write back
// before returning, so any instance can serve any request.
package store
