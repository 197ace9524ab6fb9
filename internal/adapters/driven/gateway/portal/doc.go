// Package portal implements driven.Gateway against the student portal's JSON API.
//
// The client logs in once per user with POST /api/login, then sends the
// returned token as a bearer token on every read. A 401 or 403 triggers one
// fresh login and a single retry. Requests are throttled with a token bucket.
//
// The portal returns tabular reports as positional rows inside a
// {"data": ...} envelope. This package is the only place that knows the
// column order; everything past it works with named domain records.
package portal
