package validation

// Status classifies the overall outcome of an email validation.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Result holds the signals and the derived classification for one email.
// SyncError is only populated by the orchestrator when downstream sync
// targets fail; the classifier itself never sets it.
type Result struct {
	Email          string `json:"email"`
	Domain         string `json:"domain"`
	MXValid        bool   `json:"mx_valid"`
	IsDisposable   bool   `json:"is_disposable"`
	IsBlacklisted  bool   `json:"is_blacklisted"`
	IsFreeProvider bool   `json:"is_free_provider"`
	Status         Status `json:"status"`
	Message        string `json:"message"`
	SyncError      string `json:"sync_error,omitempty"`
}

// SyncRequest identifies a CRM contact to validate and sync.
type SyncRequest struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}
