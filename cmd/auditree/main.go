// auditree-go is a continuous-compliance evidence pipeline: it fetches
// raw evidence from external systems, checks it against registered
// controls, optionally repairs failing controls, builds human-readable
// reports, and notifies configured sinks — all staged through a
// git-backed evidence locker that gives every run a verifiable,
// signed chain of custody.
//
// Usage:
//
//	# Fetch evidence only
//	auditree --fetch -C auditree.yaml
//
//	# Check two accreditations against evidence already fetched
//	auditree --check soc2,iso27001 -C auditree.yaml
//
//	# Fetch, then check, attempting live fixes, notifying Slack and PagerDuty
//	auditree --fetch --check soc2 --fix on --notify slack,pagerduty -C auditree.yaml
//
//	# Generate a fresh signing keypair
//	auditree keys generate --key-id prod-2026
//
// For complete documentation, see: https://github.com/auditree/auditree-go
package main

func main() {
	Execute()
}
