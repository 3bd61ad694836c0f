// Package async runs independent startup steps concurrently.
//
// [Parallel] is used before a run begins, where the ledger load and the
// checkpoint backend check do not depend on each other. Candidates
// themselves are always processed one at a time.
package async
