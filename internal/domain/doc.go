// Package domain models the parking availability feed and everything derived
// from it.
//
// # Data Source
//
// The feed is an opaque external endpoint (GET /api/parking) returning a JSON
// array of zones:
//
//	{"address": "Strada Exemplu Nr 12", "numberOfSpots": 120,
//	 "availablePlaces": 23, "latitude": 45.7494, "longitude": 21.2272,
//	 "type": "yellow"}
//
// availablePlaces is optional. When it is missing every spot is assumed free.
// latitude/longitude of 0,0 means the zone has no coordinate.
//
// # Address Conventions
//
// Addresses are free-form Romanian street strings. Three shapes are common:
//
//	"Strada Exemplu Nr 12"  street number after an "nr" marker
//	"Bulevardul X 45"       trailing numeric token
//	"Piața Centrală"        no number; the number defaults to "1"
//
// [NormalizeAddress] is a best-effort heuristic and never fails.
//
// # Availability Bands
//
// Each zone is classified into FULL, LIMITED, or GOOD from its spot counts and
// the optional server hint carried in "type" (red, yellow, green):
//
//	available == 0 or hint red    FULL
//	hint yellow or ratio < 0.30   LIMITED
//	hint green or ratio >= 0.50   GOOD
//	0.30 <= ratio < 0.50          gap policy (GOOD unless configured otherwise)
//
// # Traffic Intensity
//
// Intensity profiles are synthetic. Keyword tags derived from the zone text
// select a base value per hour bucket, and a bounded jitter from an injected
// random source is added. Values are clamped to [10, 95].
//
// # Zone IDs
//
// Zone IDs are deterministic SHA-256 hashes of the normalized address, so the
// same zone keeps its ID across refreshes even when the feed reorders items.
// See [ZoneID].
package domain
