// Package geo holds great-circle distance helpers and the vehicle matcher
// that filters and ranks a fleet snapshot against a transport request.
package geo
