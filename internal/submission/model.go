package submission

import (
	"encoding/json"
	"fmt"

	"github.com/your-org/checker/pkg/storage/objectstore"
)

// Context identifies one submission attempt. Build it once from CLI input
// and pass it by value.
type Context struct {
	Phone     string
	TestSetID string
	Paths     []string
}

// CredentialBundle is the short-lived grant returned by a successful
// authentication. It is used for a single run and never persisted.
type CredentialBundle struct {
	SubmissionID   string               `json:"SubmissionId"`
	Bucket         string               `json:"Bucket"`
	Dir            string               `json:"Dir"`
	AccessKeyID    string               `json:"OSSAccessKeyId"`
	Policy         string               `json:"Policy"`
	Signature      string               `json:"Signature"`
	RunnerLocation string               `json:"RunnerLocation"`
	TestEntry      string               `json:"TestEntry"`
	TestEnv        []objectstore.Object `json:"TestEnv"`
}

// authResponse mirrors the auth endpoint body, where every field is
// optional on the wire.
type authResponse struct {
	Message        *string              `json:"message"`
	SubmissionID   *string              `json:"SubmissionId"`
	Bucket         *string              `json:"Bucket"`
	Dir            *string              `json:"Dir"`
	AccessKeyID    *string              `json:"OSSAccessKeyId"`
	Policy         *string              `json:"Policy"`
	Signature      *string              `json:"Signature"`
	RunnerLocation *string              `json:"RunnerLocation"`
	TestEntry      *string              `json:"TestEntry"`
	TestEnv        []objectstore.Object `json:"TestEnv"`
}

const defaultRejection = "Submission was not authorized."

// ParseCredentialBundle decodes an auth endpoint body. A body without a
// submission id is a rejection and yields *AuthorizationError; a body with
// one must carry every other field or ErrMalformedResponse is returned.
func ParseCredentialBundle(data []byte) (*CredentialBundle, error) {
	var resp authResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &Error{Kind: ErrMalformedResponse, Err: fmt.Errorf("decode auth response: %w", err)}
	}

	if resp.SubmissionID == nil || *resp.SubmissionID == "" {
		msg := defaultRejection
		if resp.Message != nil && *resp.Message != "" {
			msg = *resp.Message
		}
		return nil, &AuthorizationError{Message: msg}
	}

	required := []struct {
		name  string
		value *string
	}{
		{"Bucket", resp.Bucket},
		{"Dir", resp.Dir},
		{"OSSAccessKeyId", resp.AccessKeyID},
		{"Policy", resp.Policy},
		{"Signature", resp.Signature},
		{"RunnerLocation", resp.RunnerLocation},
		{"TestEntry", resp.TestEntry},
	}
	for _, f := range required {
		if f.value == nil {
			return nil, missingField(f.name)
		}
	}
	if resp.TestEnv == nil {
		return nil, missingField("TestEnv")
	}

	return &CredentialBundle{
		SubmissionID:   *resp.SubmissionID,
		Bucket:         *resp.Bucket,
		Dir:            *resp.Dir,
		AccessKeyID:    *resp.AccessKeyID,
		Policy:         *resp.Policy,
		Signature:      *resp.Signature,
		RunnerLocation: *resp.RunnerLocation,
		TestEntry:      *resp.TestEntry,
		TestEnv:        resp.TestEnv,
	}, nil
}

func missingField(name string) error {
	return &Error{
		Kind:    ErrMalformedResponse,
		Message: fmt.Sprintf("malformed response: auth server omitted %s", name),
	}
}

// RunRequest is the body posted to the test runner.
type RunRequest struct {
	Files     []objectstore.Object `json:"files"`
	TestEnv   []objectstore.Object `json:"test_env"`
	TestEntry string               `json:"test_entry"`
}
