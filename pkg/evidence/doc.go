// Package evidence implements the typed evidence model that underlies the
// auditree evidence locker: raw, derived, report, tmp, and external
// evidence descriptors, content canonicalization, signing metadata, and
// raw-evidence partitioning.
//
// # Evidence kinds
//
// Every evidence object carries a Kind that determines its root directory
// and default TTL:
//
//	raw      raw/<category>/<name>       fetched straight from a source system
//	derived  derived/<category>/<name>   computed from other evidence
//	report   reports/<category>/<name>   rendered check output
//	tmp      tmp/<category>/<name>       scratch content, never indexed
//	external external/<category>/<name>  long-lived evidence (TTL ~1 year)
//
// When an Evidence is agent-scoped its path is rooted under
// agents/<agent>/<kind>/... instead of <kind>/....
//
// # Partitioning
//
// Raw evidence whose content is a JSON array (optionally nested under a
// PartitionRoot dot-key) can be partitioned by a list of dot-key fields.
// Each distinct tuple of field values becomes its own physical file named
// <hash>_<name>, where hash is the first 10 hex characters of the SHA-256
// of the tuple. See PartitionKeys and GetPartition.
//
// # Signing
//
// SetContent canonicalizes JSON content (stable 2-space indent, sorted
// keys) before computing a digest/signature pair through a Signer, so the
// signed bytes are always the bytes that end up on disk.
package evidence
