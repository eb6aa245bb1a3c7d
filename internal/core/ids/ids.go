// Package ids defines the identifier formats for ledger entities.
// Pure functions only; randomness comes from the uuid source.
package ids

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SafePart normalizes a raw string for use inside an identifier.
func SafePart(raw string) string {
	return unsafeChars.ReplaceAllString(strings.TrimSpace(raw), "_")
}

// BranchID derives the deterministic branch id for a project/name pair.
// Branch ids are stable across runs so re-creating a project's main branch
// after a partial failure converges on the same row.
func BranchID(projectID, branchName string) string {
	return "br_" + SafePart(projectID) + "_" + SafePart(branchName)
}

func hex(n int) string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:n]
}

// NewFindingID returns a fresh finding id (fnd_ + 8 hex chars).
func NewFindingID() string { return "fnd_" + hex(8) }

// NewArtifactID returns a fresh artifact id.
func NewArtifactID() string { return "art_" + hex(8) }

// NewHypothesisID returns a fresh hypothesis id (hyp_ + 10 hex chars).
func NewHypothesisID() string { return "hyp_" + hex(10) }

// NewMissionID returns a fresh verification mission id.
func NewMissionID() string { return "msn_" + hex(8) }

// NewLinkID returns a fresh synthesis link id.
func NewLinkID() string { return "lnk_" + hex(8) }

// NewWatchTargetID returns a fresh watch target id.
func NewWatchTargetID() string { return "wt_" + hex(8) }
