package services

// Recorder receives auth outcomes, labeled with common.Kind of the result.
// The metrics package provides the Prometheus implementation.
type Recorder interface {
	ObserveRegistration(outcome string)
	ObserveLogin(outcome string)
	ObserveTokenValidation(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRegistration(string)    {}
func (nopRecorder) ObserveLogin(string)           {}
func (nopRecorder) ObserveTokenValidation(string) {}
