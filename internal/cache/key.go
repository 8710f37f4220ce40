package cache

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Family is the selector shape of a cache key. Keys of one family are
// invalidated together.
type Family string

const (
	FamilyAll            Family = "all"
	FamilyByID           Family = "id"
	FamilyByCustomer     Family = "customer"
	FamilyByStaff        Family = "staff"
	FamilyByService      Family = "service"
	FamilyByStatus       Family = "status"
	FamilyByDateRange    Family = "range"
	FamilyByDate         Family = "date"
	FamilyByDateAndStaff Family = "date_staff"
	FamilyUpcoming       Family = "upcoming"
	FamilyToday          Family = "today"
	FamilyCount          Family = "count"
	FamilyCountByStatus  Family = "count_status"
)

const dateLayout = "2006-01-02"

// Key is a typed cache key. Build keys with the constructors below; String is
// the only place a key is rendered.
type Key struct {
	family Family
	id     uuid.UUID
	status string
	date   string
	from   time.Time
	to     time.Time
}

func All() Key      { return Key{family: FamilyAll} }
func Upcoming() Key { return Key{family: FamilyUpcoming} }
func Today() Key    { return Key{family: FamilyToday} }
func Count() Key    { return Key{family: FamilyCount} }

func ByID(id uuid.UUID) Key           { return Key{family: FamilyByID, id: id} }
func ByCustomer(id uuid.UUID) Key     { return Key{family: FamilyByCustomer, id: id} }
func ByStaff(id uuid.UUID) Key        { return Key{family: FamilyByStaff, id: id} }
func ByService(id uuid.UUID) Key      { return Key{family: FamilyByService, id: id} }
func ByStatus(status string) Key      { return Key{family: FamilyByStatus, status: status} }
func CountByStatus(status string) Key { return Key{family: FamilyCountByStatus, status: status} }

// ByDateRange keys are normalised to UTC so equal instants share a key.
func ByDateRange(from, to time.Time) Key {
	return Key{family: FamilyByDateRange, from: from.UTC(), to: to.UTC()}
}

// ByDate uses the calendar date of day in day's own location.
func ByDate(day time.Time) Key {
	return Key{family: FamilyByDate, date: day.Format(dateLayout)}
}

func ByDateAndStaff(day time.Time, staffID uuid.UUID) Key {
	return Key{family: FamilyByDateAndStaff, date: day.Format(dateLayout), id: staffID}
}

func (k Key) Family() Family { return k.family }

// Short reports whether the key belongs to a time-sensitive family that is
// cached with the short TTL.
func (k Key) Short() bool {
	switch k.family {
	case FamilyByDateRange, FamilyByDate, FamilyByDateAndStaff,
		FamilyUpcoming, FamilyToday, FamilyCount, FamilyCountByStatus:
		return true
	default:
		return false
	}
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.family))
	switch k.family {
	case FamilyByID, FamilyByCustomer, FamilyByStaff, FamilyByService:
		b.WriteByte(':')
		b.WriteString(k.id.String())
	case FamilyByStatus, FamilyCountByStatus:
		b.WriteByte(':')
		b.WriteString(k.status)
	case FamilyByDateRange:
		b.WriteByte(':')
		b.WriteString(k.from.Format(time.RFC3339Nano))
		b.WriteByte('/')
		b.WriteString(k.to.Format(time.RFC3339Nano))
	case FamilyByDate:
		b.WriteByte(':')
		b.WriteString(k.date)
	case FamilyByDateAndStaff:
		b.WriteByte(':')
		b.WriteString(k.date)
		b.WriteByte(':')
		b.WriteString(k.id.String())
	}
	return b.String()
}
