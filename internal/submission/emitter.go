package submission

// Stage names a step of the pipeline.
type Stage string

const (
	StageValidating  Stage = "validating files"
	StageAuthorizing Stage = "authorizing"
	StageSubmitting  Stage = "submitting"
	StageJudging     Stage = "judging"
	StageReporting   Stage = "reporting"
)

// Emitter receives progress notifications from Service.Submit.
type Emitter interface {
	// OnStage is called when a stage starts.
	OnStage(stage Stage)
	// OnFailure is called when a stage fails. Reporting failures are
	// delivered here too even though they do not fail the run.
	OnFailure(stage Stage, err error)
}

// NopEmitter discards every notification.
type NopEmitter struct{}

func (NopEmitter) OnStage(Stage)          {}
func (NopEmitter) OnFailure(Stage, error) {}

var _ Emitter = NopEmitter{}
