package mqtt

import "strings"

// Default topics.
const (
	DefaultStatePrefix   = "agriroute/vehicle/state"
	DefaultBookingPrefix = "agriroute/vehicle/booking"
	DefaultPollTopic     = "agriroute/vehicle/poll"
)

// Topic joins prefix and id with a single slash.
func Topic(prefix, id string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + id
}

// Wildcard returns the single level wildcard under prefix.
func Wildcard(prefix string) string {
	return Topic(prefix, "+")
}

// LastSegment returns the part of topic after the final slash.
func LastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
