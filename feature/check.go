package feature

import "fmt"

// PreconditionError describes a malformed record buffer. The combiner
// panics with it, since validating records is the record reader's job.
type PreconditionError struct {
	Namespace  int
	Start, End int
	Len        int
	Reason     string
}

func (e *PreconditionError) Error() string {
	if e.Namespace < 0 {
		return fmt.Sprintf("malformed record (len %d): %s", e.Len, e.Reason)
	}
	return fmt.Sprintf("malformed record (len %d): namespace %d range [%d, %d): %s",
		e.Len, e.Namespace, e.Start, e.End, e.Reason)
}

// checkRange validates the offsets of namespace ns against r, the tail
// holding the hashes begins no earlier than tail
func checkRange(r Record, ns int, tail int) (start, end int, err *PreconditionError) {
	var offset = HeaderLen + 2*ns
	if ns < 0 || offset+1 >= len(r) {
		return 0, 0, &PreconditionError{Namespace: ns, Len: len(r), Reason: "header slot out of bounds"}
	}
	start, end = int(r[offset]), int(r[offset+1])
	if start > end {
		return start, end, &PreconditionError{Namespace: ns, Start: start, End: end, Len: len(r), Reason: "start after end"}
	}
	if end > len(r) {
		return start, end, &PreconditionError{Namespace: ns, Start: start, End: end, Len: len(r), Reason: "range out of bounds"}
	}
	if start != end && start < tail {
		return start, end, &PreconditionError{Namespace: ns, Start: start, End: end, Len: len(r), Reason: "range overlaps header"}
	}
	return start, end, nil
}

// CheckRecord reports whether r is a well formed record for namespaces namespaces
func CheckRecord(r Record, namespaces int) error {
	if len(r) < HeaderLen+2*namespaces {
		return &PreconditionError{Namespace: -1, Len: len(r), Reason: "shorter than header"}
	}
	for ns := 0; ns < namespaces; ns++ {
		if _, _, err := checkRange(r, ns, HeaderLen+2*namespaces); err != nil {
			return err
		}
	}
	return nil
}
