package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestKeyString(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000101")
	day := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		key  Key
		want string
	}{
		{All(), "all"},
		{Upcoming(), "upcoming"},
		{Today(), "today"},
		{Count(), "count"},
		{ByID(id), "id:" + id.String()},
		{ByCustomer(id), "customer:" + id.String()},
		{ByStaff(id), "staff:" + id.String()},
		{ByService(id), "service:" + id.String()},
		{ByStatus("SCHEDULED"), "status:SCHEDULED"},
		{CountByStatus("SCHEDULED"), "count_status:SCHEDULED"},
		{ByDate(day), "date:2025-01-15"},
		{ByDateAndStaff(day, id), "date_staff:2025-01-15:" + id.String()},
		{ByDateRange(day, day.Add(time.Hour)), "range:2025-01-15T10:00:00Z/2025-01-15T11:00:00Z"},
	}

	for _, tc := range cases {
		if got := tc.key.String(); got != tc.want {
			t.Fatalf("%s key = %q, want %q", tc.key.Family(), got, tc.want)
		}
	}
}

func TestKeyString_FamiliesDoNotCollide(t *testing.T) {
	id := uuid.New()
	keys := []Key{ByID(id), ByCustomer(id), ByStaff(id), ByService(id), ByStatus("X"), CountByStatus("X")}

	seen := make(map[string]Family, len(keys))
	for _, k := range keys {
		if other, ok := seen[k.String()]; ok {
			t.Fatalf("%s and %s render to the same key %q", k.Family(), other, k.String())
		}
		seen[k.String()] = k.Family()
	}
}

func TestByDateRange_NormalisesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	local := time.Date(2025, 1, 15, 12, 0, 0, 0, loc)
	utc := local.UTC()

	if ByDateRange(local, local.Add(time.Hour)).String() != ByDateRange(utc, utc.Add(time.Hour)).String() {
		t.Fatalf("equal instants in different zones must share a key")
	}
}

func TestKeyShort(t *testing.T) {
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	short := []Key{ByDateRange(day, day), ByDate(day), ByDateAndStaff(day, uuid.New()), Upcoming(), Today(), Count(), CountByStatus("X")}
	long := []Key{All(), ByID(uuid.New()), ByCustomer(uuid.New()), ByStaff(uuid.New()), ByService(uuid.New()), ByStatus("X")}

	for _, k := range short {
		if !k.Short() {
			t.Fatalf("%s should use the short TTL", k.Family())
		}
	}
	for _, k := range long {
		if k.Short() {
			t.Fatalf("%s should use the default TTL", k.Family())
		}
	}
}
