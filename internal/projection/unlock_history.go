package projection

// UnlockHistory keeps the recent unlock feed in memory for the activity
// endpoints. Bounded ring; the durable record lives in settle.provenance.
type UnlockHistory struct {
	entries []UnlockEntry
	limit   int
}

func NewUnlockHistory(limit int) *UnlockHistory {
	return &UnlockHistory{
		entries: make([]UnlockEntry, 0, limit),
		limit:   limit,
	}
}

// Add records an unlock, evicting the oldest entry when full.
func (h *UnlockHistory) Add(entry UnlockEntry) {
	if len(h.entries) >= h.limit {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, entry)
}

// Recent returns up to limit entries, newest first.
func (h *UnlockHistory) Recent(limit int) []UnlockEntry {
	result := make([]UnlockEntry, 0, limit)
	for i := len(h.entries) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, h.entries[i])
	}
	return result
}

// ByUser returns up to limit entries for one account, newest first.
func (h *UnlockHistory) ByUser(account string, limit int) []UnlockEntry {
	result := make([]UnlockEntry, 0, limit)
	for i := len(h.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if h.entries[i].UserAccount == account {
			result = append(result, h.entries[i])
		}
	}
	return result
}

// ByCheckpoint returns up to limit entries for one checkpoint, newest first.
func (h *UnlockHistory) ByCheckpoint(key uint64, limit int) []UnlockEntry {
	result := make([]UnlockEntry, 0, limit)
	for i := len(h.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if h.entries[i].CheckpointKey == key {
			result = append(result, h.entries[i])
		}
	}
	return result
}
