// Package pipeline processes the lawyer registry record by record.
//
// Each record runs through the same ordered steps: navigate to the detail
// page, resolve the challenge, extract the field vector and persist it. The
// Processor runs those steps for one record and turns any failure into a
// model.RecordResult, so one bad record never stops the run. The Runner
// drives the listing: open it, ensure the output workbook, read the page
// count and process pages 1..N in order.
//
// Design decision: We keep the pipeline pattern for the per-record steps
// because:
// 1. Each step has one failure kind, which the result reports by step name
// 2. Steps can be tested in isolation with the in-memory browser
// 3. The runner stays a plain loop over pages and records
//
// Processing is strictly sequential. There is one browser session and one
// current document, so records cannot run in parallel.
package pipeline
