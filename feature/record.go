package feature

// HeaderLen is the number of words preceding the namespace offset table of a record
const HeaderLen = 2

// Record is a record buffer as produced by the record reader:
//
//	[0]                       record length (metadata)
//	[1]                       label as float32 bits
//	[HeaderLen+2i, +1]        absolute [start, end) of namespace i in the tail
//	tail                      raw hashes of all namespaces, concatenated
type Record []uint32

// Label returns the label bits of the record
func (r Record) Label() WeightBits {
	return WeightBits(r[1])
}

// Range returns the [start, end) offsets of namespace ns
func (r Record) Range(ns int) (start, end int) {
	var offset = HeaderLen + 2*ns
	return int(r[offset]), int(r[offset+1])
}

// Namespace returns the raw hashes of namespace ns, empty if it is absent
func (r Record) Namespace(ns int) []uint32 {
	var start, end = r.Range(ns)
	return r[start:end]
}
