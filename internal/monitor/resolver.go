package monitor

import "netboard/internal/domain"

// ResolveActiveParent computes which upstream parent a host is currently
// using. The policy is deterministic and evaluated per host:
//
//  1. The primary parent wins whenever it is up.
//  2. Otherwise the secondary parent wins when it is up.
//  3. Otherwise the host falls back to its primary parent even though it is
//     down or unset; a node is always labelled as "on its primary" unless the
//     secondary is specifically the one currently reachable.
//
// A parent id absent from statuses counts as down. A host with neither
// parent configured resolves to the empty string. Self-references pass
// through unfiltered; validating them is the board editor's concern.
func ResolveActiveParent(host domain.Host, statuses map[string]bool) string {
	if host.PrimaryParentID != "" && statuses[host.PrimaryParentID] {
		return host.PrimaryParentID
	}
	if host.SecondaryParentID != "" && statuses[host.SecondaryParentID] {
		return host.SecondaryParentID
	}
	return host.PrimaryParentID
}
