package badger

import (
	"encoding/binary"
	"time"
)

// Key prefixes for different data types
const (
	technicianPrefix        = "tec:"
	bookingPrefix           = "bkg:"
	bookingCustomerPrefix   = "bkc:"
	bookingTechnicianPrefix = "bkt:"
)

// makeTechnicianKey generates a key for a technician by ID.
func makeTechnicianKey(id string) []byte {
	return []byte(technicianPrefix + id)
}

// makeBookingKey generates a key for a booking by ID.
func makeBookingKey(id string) []byte {
	return []byte(bookingPrefix + id)
}

// makeOwnerIndexKey generates a composite key for the customer and technician
// booking indices.
// Format: prefix owner 0x00 createdAt bookingID
func makeOwnerIndexKey(prefix, owner string, createdAt time.Time, bookingID string) []byte {
	partial := makePartialOwnerIndexKey(prefix, owner)
	buf := make([]byte, len(partial)+8+len(bookingID))
	offset := copy(buf, partial)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], bookingID)
	return buf
}

// makePartialOwnerIndexKey generates the iteration prefix for one owner.
// The zero byte keeps owner "c1" from matching owner "c10".
func makePartialOwnerIndexKey(prefix, owner string) []byte {
	buf := make([]byte, 0, len(prefix)+len(owner)+1)
	buf = append(buf, prefix...)
	buf = append(buf, owner...)
	return append(buf, 0)
}
