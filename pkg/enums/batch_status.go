package enums

import "fmt"

// BatchStatus is the lifecycle state of a feed batch.
type BatchStatus string

const (
	BatchStatusActive    BatchStatus = "active"
	BatchStatusCompleted BatchStatus = "completed"
)

var validBatchStatuses = []BatchStatus{
	BatchStatusActive,
	BatchStatusCompleted,
}

// String implements fmt.Stringer.
func (s BatchStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BatchStatus.
func (s BatchStatus) IsValid() bool {
	for _, candidate := range validBatchStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBatchStatus converts raw input into a BatchStatus.
func ParseBatchStatus(value string) (BatchStatus, error) {
	for _, candidate := range validBatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid batch status %q", value)
}
