package record

// Overhead is the fixed framing cost of one record on the tag
// (record header, type and length fields).
const Overhead = 8

// Size returns the exact encoded size of r in bytes.
func Size(r Record) int {
	return Overhead + len(r.Payload)
}

// SizeOf returns the encoded size of a record sequence.
// SizeOf(append(a, b...)...) == SizeOf(a...) + SizeOf(b...) for any a, b.
func SizeOf(records ...Record) int {
	total := 0
	for _, r := range records {
		total += Size(r)
	}
	return total
}
