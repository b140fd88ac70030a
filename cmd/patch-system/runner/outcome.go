package runner

// Outcome is what the script console reports for one execution
type Outcome struct {
	// RunningTime as reported by the console, stored verbatim
	RunningTime string `json:"runningTime"`

	// Output captured from the script
	Output string `json:"output"`

	// ExceptionStackTrace is non-blank when the script failed
	ExceptionStackTrace string `json:"exceptionStackTrace"`

	// Result is the value of the script's last expression, informational only
	Result string `json:"result,omitempty"`
}
