// internal/dispatch/sms_test.go
package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"campaign-engine/internal/common/cache"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/integration"
	"campaign-engine/internal/models"
	"campaign-engine/internal/providers"
	"campaign-engine/internal/vault"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResultStore struct {
	mu      sync.Mutex
	updates []models.CampaignResult
}

func (f *fakeResultStore) UpdateResult(ctx context.Context, res *models.CampaignResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, *res)
	return nil
}

func (f *fakeResultStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

type smsFixture struct {
	dispatcher *SMSDispatcher
	mock       sqlmock.Sqlmock
	store      *fakeResultStore
	vault      *vault.Vault
}

func newSMSFixture(t *testing.T, providerURL string) *smsFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	v, err := vault.New("dispatch-test-secret")
	require.NoError(t, err)

	manager := integration.NewManager(integration.NewStore(db), v, cache.NopCache{}, time.Minute, logger.NewTestLogger(t))
	client := providers.NewTwilioClient(providerURL, 5*time.Second)
	store := &fakeResultStore{}

	return &smsFixture{
		dispatcher: NewSMSDispatcher(manager, client, store, 4, logger.NewTestLogger(t)),
		mock:       mock,
		store:      store,
		vault:      v,
	}
}

func integrationColumns() []string {
	return []string{"id", "user_id", "provider", "config", "is_active", "last_tested", "test_status", "error_count", "updated_at"}
}

// expectTwilioConfig queues one config resolution against the mock.
func (f *smsFixture) expectTwilioConfig(t *testing.T) {
	t.Helper()
	sealed, err := f.vault.Encrypt("auth-token")
	require.NoError(t, err)

	configJSON, _ := json.Marshal(map[string]interface{}{
		"accountSid":  "AC00000000000000000000000000000000",
		"authToken":   sealed,
		"phoneNumber": "+15559990000",
	})
	f.mock.ExpectQuery("SELECT (.+) FROM integration_configs").
		WithArgs("user-1", "twilio").
		WillReturnRows(sqlmock.NewRows(integrationColumns()).
			AddRow("cfg-1", "user-1", "twilio", configJSON, true, nil, "passed", 0, time.Now().UTC()))
}

func pendingResult(id, recordID string) *models.CampaignResult {
	return &models.CampaignResult{
		ID:         id,
		CampaignID: "camp-1",
		RecordID:   recordID,
		Channel:    models.ChannelSMS,
		Status:     models.ResultPending,
		MaxRetries: models.DefaultMaxRetries,
	}
}

func smsCampaign() *models.Campaign {
	return &models.Campaign{
		ID:     "camp-1",
		UserID: "user-1",
		Channels: models.ChannelPlan{
			SMS: &models.ChannelSettings{Enabled: true},
		},
	}
}

func TestSMSDispatcher_SendsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "SM1", "status": "queued"})
	}))
	defer server.Close()

	f := newSMSFixture(t, server.URL)
	f.expectTwilioConfig(t)

	res := pendingResult("res-1", "rec-1")
	records := map[string]*models.PropertyRecord{
		"rec-1": {ID: "rec-1", OwnerName: "Jane", OwnerPhone: "555-123-4567", Address: "123 Main St", City: "Austin"},
	}

	report := f.dispatcher.DispatchBatch(context.Background(), smsCampaign(), []*models.CampaignResult{res}, records, nil)

	assert.True(t, report.Configured)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, models.ResultSent, res.Status)
	assert.Equal(t, 0, res.RetryCount)
	require.NotNil(t, res.SentAt)
	assert.Equal(t, "SM1", res.Metadata["provider_message_id"])
	assert.Equal(t, 1, f.store.count())
}

func TestSMSDispatcher_MissingConfigLeavesRowsUntouched(t *testing.T) {
	f := newSMSFixture(t, "http://localhost:0")
	f.mock.ExpectQuery("SELECT (.+) FROM integration_configs").
		WithArgs("user-1", "twilio").
		WillReturnRows(sqlmock.NewRows(integrationColumns()))

	res := pendingResult("res-1", "rec-1")
	report := f.dispatcher.DispatchBatch(context.Background(), smsCampaign(),
		[]*models.CampaignResult{res}, nil, nil)

	assert.False(t, report.Configured)
	assert.Equal(t, 1, report.StillPending)
	assert.Equal(t, models.ResultPending, res.Status)
	assert.Equal(t, 0, res.RetryCount, "missing config must not spend retry budget")
	assert.Equal(t, 0, f.store.count(), "no row may be written when the provider is unconfigured")
}

func TestSMSDispatcher_InvalidPhoneFailsWithoutRetry(t *testing.T) {
	f := newSMSFixture(t, "http://localhost:0")
	f.expectTwilioConfig(t)

	res := pendingResult("res-1", "rec-1")
	records := map[string]*models.PropertyRecord{
		"rec-1": {ID: "rec-1", OwnerName: "Jane", OwnerPhone: "123"},
	}

	report := f.dispatcher.DispatchBatch(context.Background(), smsCampaign(), []*models.CampaignResult{res}, records, nil)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, models.ResultFailed, res.Status)
	assert.Equal(t, 0, res.RetryCount, "invalid input is not retryable")
	assert.Contains(t, res.ErrorMessage, "invalid phone number")
}

func TestSMSDispatcher_RetryBudget(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "service unavailable"})
	}))
	defer server.Close()

	f := newSMSFixture(t, server.URL)
	res := pendingResult("res-1", "rec-1")
	records := map[string]*models.PropertyRecord{
		"rec-1": {ID: "rec-1", OwnerName: "Jane", OwnerPhone: "5551234567"},
	}

	// Three failing passes exhaust the default retry budget.
	for i := 1; i <= models.DefaultMaxRetries; i++ {
		f.expectTwilioConfig(t)
		f.dispatcher.DispatchBatch(context.Background(), smsCampaign(), []*models.CampaignResult{res}, records, nil)
		assert.Equal(t, i, res.RetryCount)
		if i < models.DefaultMaxRetries {
			assert.Equal(t, models.ResultPending, res.Status, "result stays pending while budget remains")
		}
	}

	assert.Equal(t, models.ResultFailed, res.Status)
	assert.Equal(t, models.DefaultMaxRetries, calls)
}

func TestSMSDispatcher_FailTwiceThenSucceed(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "flaky"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "SM9", "status": "queued"})
	}))
	defer server.Close()

	f := newSMSFixture(t, server.URL)
	res := pendingResult("res-1", "rec-1")
	records := map[string]*models.PropertyRecord{
		"rec-1": {ID: "rec-1", OwnerName: "Jane", OwnerPhone: "5551234567"},
	}

	for i := 0; i < 3; i++ {
		f.expectTwilioConfig(t)
		f.dispatcher.DispatchBatch(context.Background(), smsCampaign(), []*models.CampaignResult{res}, records, nil)
	}

	assert.Equal(t, models.ResultSent, res.Status)
	assert.Equal(t, 2, res.RetryCount, "the successful send keeps the two failed attempts on record")
}

func TestSMSDispatcher_TemplateBody(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotBody = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "SM1", "status": "queued"})
	}))
	defer server.Close()

	f := newSMSFixture(t, server.URL)
	f.expectTwilioConfig(t)

	res := pendingResult("res-1", "rec-1")
	records := map[string]*models.PropertyRecord{
		"rec-1": {ID: "rec-1", OwnerName: "Jane", OwnerPhone: "5551234567", Address: "123 Main St"},
	}
	tpl := &models.MessageTemplate{
		Channel: models.ChannelSMS,
		Body:    "Hello {{owner_name}}, calling about {{address}}.",
	}

	f.dispatcher.DispatchBatch(context.Background(), smsCampaign(), []*models.CampaignResult{res}, records, tpl)

	assert.Equal(t, "Hello Jane, calling about 123 Main St.", gotBody)
}
