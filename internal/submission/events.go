package submission

import "github.com/your-org/checker/pkg/storage/objectstore"

// EventTypeResult tags analytics records published to a message bus.
const EventTypeResult = "submission.result"

// Record is emitted once per run after the runner has answered.
type Record struct {
	Files        []objectstore.Object `json:"files"`
	SubmissionID string               `json:"submission_id"`
	Result       string               `json:"result"`
}
