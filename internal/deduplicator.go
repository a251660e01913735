package internal

// Deduplicator decides when an archived session is a re-save of an existing one
type Deduplicator struct{}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// IndexOf returns the position of the entry that candidate replaces, or -1.
//
// Entries that both carry an explicit session id match on id alone. When
// either side has no id (records written before ids existed) the first turn
// timestamp is the key.
func (d *Deduplicator) IndexOf(archive []ArchivedSession, candidate ArchivedSession, candidateHasID bool) int {
	candidateFirst, hasFirst := candidate.FirstTurnTime()

	for i, entry := range archive {
		entryHasID := entry.ID != "" && !isLegacyID(entry.ID)
		if candidateHasID && entryHasID {
			if entry.ID == candidate.ID {
				return i
			}
			continue
		}
		if !hasFirst {
			continue
		}
		if first, ok := entry.FirstTurnTime(); ok && SameInstant(first, candidateFirst) {
			return i
		}
	}
	return -1
}

// Deduplicate collapses entries sharing a key, keeping the first (most recent) one
func (d *Deduplicator) Deduplicate(archive []ArchivedSession) []ArchivedSession {
	unique := make([]ArchivedSession, 0, len(archive))
	for _, entry := range archive {
		if d.IndexOf(unique, entry, entry.ID != "" && !isLegacyID(entry.ID)) >= 0 {
			continue
		}
		unique = append(unique, entry)
	}
	return unique
}

// isLegacyID reports ids minted from the archive time in milliseconds, which
// carry no conversation identity.
func isLegacyID(id string) bool {
	if id == "" {
		return true
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
