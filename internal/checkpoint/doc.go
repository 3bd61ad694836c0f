// Package checkpoint persists per-region records of completed account
// creations so an interrupted run can resume without creating duplicates.
//
// A record holds one [Entry] per composite key (region, division, domain).
// An entry with a location id marks the division as done. Records are read
// defensively: a missing or corrupt record reads as empty. Writes replace the
// whole record and happen synchronously after each resumability-relevant
// stage.
//
// Two backends are provided: [FileBackend] writes one JSON file per region
// under a directory, [S3Backend] writes one object per region to an
// S3-compatible bucket.
package checkpoint
