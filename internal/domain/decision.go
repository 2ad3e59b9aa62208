package domain

// EnrollmentResult is returned to the HTTP layer after a successful
// enrollment.
type EnrollmentResult struct {
	IdentityID int64   `json:"identity_id"`
	Name       string  `json:"name"`
	Faces      int     `json:"faces"`
	Levels     []Level `json:"levels"`
	Trained    bool    `json:"trained"`
}

// Decision is a successful completion of the decision engine. Granted
// and Declined are both normal terminal outcomes; error terminations
// (NoFaceDetected, ClassifierUnavailable, NotRecognized) never produce
// a Decision.
type Decision struct {
	Granted         bool    `json:"granted"`
	IdentityID      int64   `json:"identity_id"`
	AccessRequestID int64   `json:"access_request_id"`
	Confidence      float64 `json:"confidence"`
}
