// Package naming provides consistent naming functions for provisioned accounts
// and checkpoint artifacts.
//
// Account names are compared through [AccountKey], which folds case and
// collapses whitespace so that ledger rows typed by hand still match the
// names produced by the candidate list. Checkpoint groups are derived from
// the region key and map to one object per group.
package naming
