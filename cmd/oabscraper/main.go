// Package main provides the entry point for the oabscraper CLI.
//
// oabscraper walks the OAB-PR lawyer registry listing, opens every lawyer's
// detail page, satisfies the reCAPTCHA through its audio challenge and
// appends the detail fields to a spreadsheet.
//
// Usage:
//
//	oabscraper run
//	oabscraper run --max-pages 2 --output lawyers.xlsx
//	oabscraper history --list
//
// See --help for all available options.
package main

// main is the entry point for oabscraper.
func main() {
	Execute()
}
