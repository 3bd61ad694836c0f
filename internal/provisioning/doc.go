// Package provisioning drives candidates through account creation.
//
// # Pipeline
//
// Each candidate passes two dedup gates and then a fixed table of stages:
//
//   - ledger gate: skip when the ledger already maps the target name to a location id
//   - checkpoint gate: skip when the checkpoint records a location id (resume only)
//   - create: create the account through the account gateway
//   - checkpoint: persist the new location id immediately
//   - ledger: update the matching row in place or append a new one
//   - telephony (optional): find the paired telephony account and close it
//   - token (optional): fetch a scoped token and amend the checkpoint
//
// Candidates run strictly one at a time. Failures never escape the
// candidate: mandatory stage failures end that candidate as Failed, optional
// stage failures are logged and the pipeline moves on.
//
// # Core Types
//
// Orchestrator owns the collaborators and runs a list of candidates.
// RunContext identifies one invocation. Outcome records what happened to a
// candidate and Summary aggregates a run. Observer receives the structured
// event narrative, Metrics the stage timings.
package provisioning
