// Package api defines the HTTP/JSON protocol spoken by the riskd service and
// a small client for it.
//
// # Endpoints
//
//	POST   /estimate     risk.Params      → risk.Report (stored, ID set)
//	POST   /aggregate    AggregateRequest → AggregateResponse
//	POST   /sweep        SweepRequest     → SweepResponse
//	GET    /reports                       → ReportsResponse
//	GET    /reports/{id}                  → risk.Report
//	DELETE /reports/{id}                  → 204
//	GET    /health                        → 200
//
// Invalid parameters are answered with 400 and an ErrorResponse body; an
// unknown report ID with 404. The helpers turn every non-2xx answer into a
// *StatusError carrying the server's message.
//
// All requests share one http.Client with a five second timeout and honour
// the caller's context.
package api
