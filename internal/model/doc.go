// Package model defines the core data structures shared by the scraper.
//
// This package contains the following main types:
//   - RecordRef: A lawyer link found on a listing page
//   - FieldVector: The eight positional values scraped from a detail page
//   - ChallengeState: The observed state of the anti-automation challenge
//   - Error / FailureKind: Typed failures used by the orchestrator to decide
//     whether to skip a record, skip a page, or abort the run
//   - RunReport: Counters and failures collected during one run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The listing, captcha, pipeline, database and report packages
// all exchange these types.
package model
