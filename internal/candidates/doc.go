// Package candidates loads the pre-built list of geography divisions that
// should receive a sub-account.
//
// A candidate document names one region and an ordered list of items. Each
// item carries the creation payload sent verbatim to the account platform;
// its "name" field doubles as the ledger key and the telephony lookup name.
// Documents may be JSON or YAML.
package candidates
