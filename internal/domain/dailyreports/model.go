package dailyreports

import "time"

// Report дневной отчёт прораба: один на проект и день, дополняется
type Report struct {
	ID        int64
	ProjectID int64
	ForemanID int64
	Date      time.Time
	Text      string
	MediaIDs  []string
}
