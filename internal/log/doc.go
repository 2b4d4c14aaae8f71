// Package log provides the scraper's logging setup, built on top of the
// standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (API keys, tokens, cookies)
//   - A colored console sink and an optional rotating file sink
//   - Verbose mode support for debug output
//
// # Security Features
//
// The SecureHandler sanitizes sensitive information before any sink sees it:
//   - HTTP headers (Authorization, Cookie, X-Goog-Api-Key)
//   - Secret values detected by pattern matching (Google API keys, bearer tokens)
//   - URLs that carry a key query parameter, such as speech recognition endpoints
//
// Even in verbose mode, sensitive values are masked so that log files kept on
// disk never contain the speech API key.
//
// # Usage
//
//	logger, closer, err := log.New(log.Options{
//	    Console: os.Stderr,
//	    Verbose: true,
//	    FileDir: "logs",
//	})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
//	logger.Info("record persisted", "page", 3, "url", recordURL)
package log
