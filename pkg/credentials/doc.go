// Package credentials implements the evidence pipeline's section/field
// credential bag (spec.md §4.A): a keyed lookup backed by either a YAML
// file of named sections or an external secret-store command, with a
// SECTION_FIELD environment variable taking precedence over the backend.
//
// A typical fetcher or notifier looks up a single field:
//
//	bag, err := credentials.Load(credentials.DefaultPath())
//	token, err := bag.Get("github", "token")
//
// Missing fields raise a single CredentialError naming the section,
// field, and the source that was consulted, rather than a generic "not
// found".
package credentials
