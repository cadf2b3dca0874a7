package domain

import "time"

// WithdrawalRequest is a deferred withdrawal an agent queued after an
// insufficient-reserve rejection. Once processed it becomes historical and
// is excluded from active queue scans.
type WithdrawalRequest struct {
	ID          int64
	AgentID     string
	Amount      int64 // requested currency value
	RequestedAt time.Time
	Processed   bool
}
