// Package telephony is a minimal client for the telephony provider's
// subaccount API.
//
// The pipeline looks up the subaccount paired with a newly created account
// by its friendly name and closes it.
package telephony
