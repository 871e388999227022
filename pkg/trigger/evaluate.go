package trigger

import "time"

// Evaluate returns the triggers due for s at now that are not in fired.
// It is a pure function of its arguments.
func Evaluate(now time.Time, s Snapshot, fired FiringSet) []Due {
	var due []Due
	for _, r := range rules {
		var last *Firing
		if f, ok := fired[r.key]; ok {
			if r.class == Once {
				continue
			}
			last = &f
		}

		window, ok := r.due(now, s, last)
		if !ok || fired.Has(r.key, window) {
			continue
		}
		due = append(due, Due{OrganizationID: s.OrganizationID, Key: r.key, Window: window})
	}
	return due
}

// IsDue reports whether rule k alone is due for s at now.
func IsDue(now time.Time, s Snapshot, k Key, fired FiringSet) bool {
	for _, d := range Evaluate(now, s, fired) {
		if d.Key == k {
			return true
		}
	}
	return false
}
