// Package requestid tags every HTTP request with a correlation id.
//
// Middleware reuses a well-formed X-Request-ID header or generates a UUID,
// stores it in the request context and echoes it in the response. Pair it
// with LoggerExtractor so every log record written with the request context
// carries a request_id attribute:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r.Use(requestid.Middleware)
package requestid
