package core

import "fmt"

// SequenceError reports a source sequence violation on a partition.
type SequenceError struct {
	Partition  string
	Expected   int64
	Got        int64
	OutOfOrder bool // stale delivery of a new event, as opposed to a gap
}

func (e *SequenceError) Error() string {
	if e.OutOfOrder {
		return fmt.Sprintf("out-of-order event: partition=%s, expected=%d, got=%d",
			e.Partition, e.Expected, e.Got)
	}
	return fmt.Sprintf("sequence gap: partition=%s, expected=%d, got=%d",
		e.Partition, e.Expected, e.Got)
}

// SequenceValidator validates source sequences per partition.
// Not thread-safe — only accessed from the single-threaded core.
type SequenceValidator struct {
	expectedNextSeq map[string]int64 // partition -> next expected sequence
}

func NewSequenceValidator() *SequenceValidator {
	return &SequenceValidator{
		expectedNextSeq: make(map[string]int64),
	}
}

// ValidateSequence checks source sequence ordering
func (sv *SequenceValidator) ValidateSequence(
	partition string,
	sourceSequence int64,
	isDuplicate bool,
) error {
	expected := sv.expectedNextSeq[partition]

	if sourceSequence < expected {
		if isDuplicate {
			// Already processed — expected redelivery
			return nil
		}
		return &SequenceError{Partition: partition, Expected: expected, Got: sourceSequence, OutOfOrder: true}
	}

	if sourceSequence == expected {
		sv.expectedNextSeq[partition] = expected + 1
		return nil
	}

	// sourceSequence > expected
	return &SequenceError{Partition: partition, Expected: expected, Got: sourceSequence}
}

// ValidateRateSequence validates oracle rate updates. The rate feed is
// a sampled stream: stale updates are silently ignored and gaps are
// tolerated.
func (sv *SequenceValidator) ValidateRateSequence(sourceSequence int64) (stale bool) {
	const partition = "rates"

	expected := sv.expectedNextSeq[partition]

	if sourceSequence < expected {
		return true
	}

	sv.expectedNextSeq[partition] = sourceSequence + 1
	return false
}
