package entity

// UploadState is the tag of an UploadOutcome
type UploadState string

const (
	UploadIdle       UploadState = "idle"
	UploadInProgress UploadState = "in_progress"
	UploadSuccess    UploadState = "success"
	UploadFailed     UploadState = "failed"
)

// DefaultUploadMessage is used when the backend acknowledges without a message
const DefaultUploadMessage = "Documento procesado correctamente"

// UploadResult is the acknowledgment returned by the submission backend
type UploadResult struct {
	Message     string `json:"message"`
	ContratoPDF string `json:"contratoPDF,omitempty"`
	FirmaIMG    string `json:"firmaIMG,omitempty"`
}

// UploadOutcome holds exactly one state of a submission attempt
type UploadOutcome struct {
	State    UploadState   `json:"state"`
	Progress int           `json:"progress"`
	Result   *UploadResult `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

func IdleOutcome() UploadOutcome {
	return UploadOutcome{State: UploadIdle}
}

func InProgressOutcome(progress int) UploadOutcome {
	return UploadOutcome{State: UploadInProgress, Progress: progress}
}

func SuccessOutcome(result *UploadResult) UploadOutcome {
	return UploadOutcome{State: UploadSuccess, Progress: 100, Result: result}
}

func FailedOutcome(message string) UploadOutcome {
	return UploadOutcome{State: UploadFailed, Progress: 0, Error: message}
}

// IsTerminal reports whether the outcome is success or failed
func (o UploadOutcome) IsTerminal() bool {
	return o.State == UploadSuccess || o.State == UploadFailed
}

// UploadEvent is one element of a submission's event stream.
// Progress events carry an in-progress outcome; the last event is terminal.
type UploadEvent struct {
	Outcome UploadOutcome `json:"outcome"`
}

// Terminal reports whether this is the final event of the stream
func (e UploadEvent) Terminal() bool {
	return e.Outcome.IsTerminal()
}
