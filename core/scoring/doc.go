// Package scoring fuses weather, market and transport signals into a single
// recommendation.
package scoring
