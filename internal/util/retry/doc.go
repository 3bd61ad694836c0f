// Package retry provides exponential backoff for infrastructure calls that
// sit outside the provisioning pipeline, such as refreshing the agency
// credential at startup.
//
// Pipeline stages are never retried within a run; a failed candidate is
// retried by the next full run instead.
package retry
