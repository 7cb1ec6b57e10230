package notarize

import "time"

// Status is the service-defined state of a notarization request.
type Status string

const (
	StatusInProgress Status = "In Progress"
	StatusAccepted   Status = "Accepted"
	StatusInvalid    Status = "Invalid"
	StatusRejected   Status = "Rejected"
)

// Terminal reports whether no further polling can change the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusInvalid, StatusRejected:
		return true
	}
	return false
}

// Submission identifies one upload to the notarization service. The uuid is
// assigned by the service and referenced by every subsequent poll.
type Submission struct {
	UUID     string
	Path     string
	BundleID string
}

// Report is the latest status observed for a submission. Each poll
// supersedes the previous report.
type Report struct {
	UUID   string
	Status Status
	LogURL string
}

type submitResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Path    string `json:"path"`
}

type infoResponse struct {
	Message     string    `json:"message"`
	ID          string    `json:"id"`
	CreatedDate time.Time `json:"createdDate"`
	Status      string    `json:"status"`
	Name        string    `json:"name"`
	LogFileURL  string    `json:"logFileUrl"`
}

// altoolUploadResponse is the plist shape emitted by the legacy altool
// --notarize-app flow. Only the request uuid is interesting.
type altoolUploadResponse struct {
	SuccessMessage string               `plist:"success-message"`
	Upload         altoolUploadReceipt  `plist:"notarization-upload"`
	ProductErrors  []altoolProductError `plist:"product-errors"`
}

type altoolUploadReceipt struct {
	RequestUUID string `plist:"RequestUUID"`
}

type altoolProductError struct {
	Code    int    `plist:"code"`
	Message string `plist:"message"`
}
