package appointments

import (
	"salon/backend/internal/cache"
	"salon/backend/internal/domain"
)

// invalidationKeys lists the cache keys a write must drop. before is nil on
// create and after is nil on delete. Date and date range keys are left to
// expire on their short TTL.
func invalidationKeys(before, after *domain.Appointment) []cache.Key {
	keys := []cache.Key{cache.All(), cache.Upcoming(), cache.Today(), cache.Count()}
	for _, a := range []*domain.Appointment{before, after} {
		if a == nil {
			continue
		}
		keys = append(keys,
			cache.ByID(a.ID),
			cache.ByCustomer(a.CustomerID),
			cache.ByStaff(a.StaffID),
			cache.ByService(a.ServiceID),
			cache.ByStatus(string(a.Status)),
			cache.CountByStatus(string(a.Status)),
		)
	}

	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		s := k.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, k)
	}
	return out
}
