package fingerprint

import (
	"net/url"
	"strings"

	"selenex/internal/models"
)

const landmarkOverlapThreshold = 0.8

// Similarity summarizes how close a current page is to a recorded one.
type Similarity struct {
	SamePath        bool    `json:"same_path"`
	TextHashMatch   bool    `json:"text_hash_match"`
	LandmarkOverlap float64 `json:"landmark_overlap"`
}

// SamePage is the relocation heuristic: same path, and either identical leading text or
// a largely identical landmark skeleton.
func (s Similarity) SamePage() bool {
	return s.SamePath && (s.TextHashMatch || s.LandmarkOverlap >= landmarkOverlapThreshold)
}

// Compare scores current against recorded. Minimal fingerprints only contribute the path.
func Compare(recorded, current models.PageFingerprint) Similarity {
	s := Similarity{SamePath: urlPath(recorded.URL) == urlPath(current.URL)}
	if recorded.VisibleTextHash != nil && current.VisibleTextHash != nil {
		s.TextHashMatch = *recorded.VisibleTextHash == *current.VisibleTextHash
	}
	if !recorded.IsMinimal() && !current.IsMinimal() {
		s.LandmarkOverlap = jaccard(recorded.DomSignature, current.DomSignature)
	}
	return s
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	p := strings.TrimSuffix(u.Path, "/")
	return u.Host + p
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	inter := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, v := range b {
		if seen[v] {
			continue
		}
		seen[v] = true
		if set[v] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}
