package devserver

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/checker/internal/submission"
	"github.com/your-org/checker/pkg/storage/objectstore"
)

// Rejections are answered with a message body and no submission id.
var (
	ErrPhoneNotRegistered = errors.New("phone not registered")
	ErrUnknownTestSet     = errors.New("unknown test set")
)

var (
	ErrNoSuchBucket  = errors.New("no such bucket")
	ErrAccessDenied  = errors.New("access denied")
	ErrUnknownEntry  = errors.New("unknown test entry")
	ErrGrantNotFound = errors.New("grant not found")
)

const grantTTL = 15 * time.Minute

// Service plays the grading platform: it issues upload grants, accepts
// policy-signed uploads, judges submissions and collects analytics.
type Service struct {
	phones    map[string]struct{}
	testSetID string
	bucket    string
	testEntry string
	publicURL string
	secret    []byte
	store     *MemoryStore
	publisher submission.Publisher
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	grants  map[string]grant
	records []submission.Record
}

type Params struct {
	Phones    []string
	TestSetID string
	Bucket    string
	TestEntry string
	// PublicURL is the base advertised for the runner. When empty the
	// base the auth request arrived on is used.
	PublicURL string
	Store     *MemoryStore
	// Publisher forwards received analytics records. Optional.
	Publisher submission.Publisher
	Logger    *zap.Logger
}

// AuthRequest carries the identity query of GET /auth.
type AuthRequest struct {
	Phone     string
	TestSetID string
	MAC       string
	// BaseURL is the scheme and host the request was addressed to.
	BaseURL string
}

// UploadForm is a decoded POST Object form.
type UploadForm struct {
	Key         string
	AccessKeyID string
	Policy      string
	Signature   string
	Data        []byte
}

type grant struct {
	submissionID string
	dir          string
	policy       string
	expires      time.Time
}

type policyDocument struct {
	Expiration string `json:"expiration"`
	Conditions []any  `json:"conditions"`
}

// NewService constructs a dev platform Service.
func NewService(p Params) *Service {
	phones := make(map[string]struct{}, len(p.Phones))
	for _, ph := range p.Phones {
		if ph = strings.TrimSpace(ph); ph != "" {
			phones[ph] = struct{}{}
		}
	}
	store := p.Store
	if store == nil {
		store = NewMemoryStore()
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		phones:    phones,
		testSetID: p.TestSetID,
		bucket:    p.Bucket,
		testEntry: p.TestEntry,
		publicURL: strings.TrimSuffix(p.PublicURL, "/"),
		secret:    []byte(uuid.NewString()),
		store:     store,
		publisher: p.Publisher,
		logger:    logger,
		now:       time.Now,
		grants:    map[string]grant{},
	}
}

// Authorize issues a credential bundle for a registered phone and the
// configured test set.
func (s *Service) Authorize(_ context.Context, req AuthRequest) (*submission.CredentialBundle, error) {
	if _, ok := s.phones[req.Phone]; !ok {
		return nil, ErrPhoneNotRegistered
	}
	if req.TestSetID != s.testSetID {
		return nil, ErrUnknownTestSet
	}

	submissionID := uuid.NewString()
	dir := fmt.Sprintf("submissions/%s", submissionID)
	expires := s.now().UTC().Add(grantTTL)

	doc, err := json.Marshal(policyDocument{
		Expiration: expires.Format(time.RFC3339),
		Conditions: []any{
			map[string]string{"bucket": s.bucket},
			[]string{"starts-with", "$key", dir + "/"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal policy: %w", err)
	}
	policy := base64.StdEncoding.EncodeToString(doc)
	accessKeyID := "dev-" + strings.ReplaceAll(uuid.NewString(), "-", "")

	s.mu.Lock()
	s.grants[accessKeyID] = grant{submissionID: submissionID, dir: dir, policy: policy, expires: expires}
	s.mu.Unlock()

	base := s.publicURL
	if base == "" {
		base = strings.TrimSuffix(req.BaseURL, "/")
	}

	s.logger.Info("submission authorized",
		zap.String("submission_id", submissionID),
		zap.String("test_set_id", req.TestSetID),
		zap.String("mac", req.MAC),
	)

	return &submission.CredentialBundle{
		SubmissionID:   submissionID,
		Bucket:         s.bucket,
		Dir:            dir,
		AccessKeyID:    accessKeyID,
		Policy:         policy,
		Signature:      s.sign(policy),
		RunnerLocation: base + "/run",
		TestEntry:      s.testEntry,
		TestEnv:        []objectstore.Object{},
	}, nil
}

// Upload verifies form against the grant it names and stores the file.
func (s *Service) Upload(_ context.Context, bucket string, form UploadForm) error {
	if bucket != s.bucket {
		return ErrNoSuchBucket
	}

	s.mu.Lock()
	g, ok := s.grants[form.AccessKeyID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %w", ErrAccessDenied, ErrGrantNotFound)
	}
	if form.Policy != g.policy || !hmac.Equal([]byte(form.Signature), []byte(s.sign(g.policy))) {
		return fmt.Errorf("%w: signature mismatch", ErrAccessDenied)
	}
	if s.now().UTC().After(g.expires) {
		return fmt.Errorf("%w: policy expired", ErrAccessDenied)
	}
	if !strings.HasPrefix(form.Key, g.dir+"/") {
		return fmt.Errorf("%w: key outside %s", ErrAccessDenied, g.dir)
	}

	s.store.Put(bucket, form.Key, form.Data)
	s.logger.Debug("object stored",
		zap.String("submission_id", g.submissionID),
		zap.String("key", form.Key),
		zap.Int("size_bytes", len(form.Data)),
	)
	return nil
}

// Judge checks that every submitted file reached the store. It answers one
// line per file followed by the overall verdict.
func (s *Service) Judge(_ context.Context, req submission.RunRequest) (string, error) {
	if req.TestEntry != s.testEntry {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntry, req.TestEntry)
	}

	var b strings.Builder
	verdict := "PASS"
	if len(req.Files) == 0 {
		verdict = "FAIL"
	}
	for _, f := range req.Files {
		if _, ok := s.store.Get(f.Bucket, f.Key); ok {
			fmt.Fprintf(&b, "PASS %s\n", f.Key)
			continue
		}
		verdict = "FAIL"
		fmt.Fprintf(&b, "FAIL %s: not uploaded\n", f.Key)
	}
	b.WriteString(verdict + "\n")
	return b.String(), nil
}

// Record keeps rec and forwards it to the publisher when one is set.
func (s *Service) Record(ctx context.Context, rec submission.Record) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	if s.publisher == nil {
		return nil
	}
	headers := map[string]string{
		"submission_id": rec.SubmissionID,
		"event_type":    submission.EventTypeResult,
	}
	if err := s.publisher.PublishJSON(ctx, rec.SubmissionID, rec, headers); err != nil {
		return fmt.Errorf("publish analytics record: %w", err)
	}
	return nil
}

// Records returns the analytics records received so far.
func (s *Service) Records() []submission.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]submission.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Service) Store() *MemoryStore {
	return s.store
}

func (s *Service) sign(policy string) string {
	mac := hmac.New(sha1.New, s.secret)
	mac.Write([]byte(policy))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Close releases the publisher if one is set.
func (s *Service) Close(ctx context.Context) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Close(ctx)
}
