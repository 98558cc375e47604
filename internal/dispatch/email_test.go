// internal/dispatch/email_test.go
package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

type emailFixture struct {
	dispatcher *EmailDispatcher
	mock       sqlmock.Sqlmock
	store      *fakeResultStore
	vault      *vault.Vault
}

func newEmailFixture(t *testing.T, providerURL string) *emailFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	v, err := vault.New("dispatch-test-secret")
	require.NoError(t, err)

	manager := integration.NewManager(integration.NewStore(db), v, cache.NopCache{}, time.Minute, logger.NewTestLogger(t))
	client := providers.NewSendGridClient(providerURL, 5*time.Second)
	store := &fakeResultStore{}

	return &emailFixture{
		dispatcher: NewEmailDispatcher(manager, client, store, 4, logger.NewTestLogger(t)),
		mock:       mock,
		store:      store,
		vault:      v,
	}
}

func (f *emailFixture) expectSendGridConfig(t *testing.T) {
	t.Helper()
	sealed, err := f.vault.Encrypt("SG.plain-key")
	require.NoError(t, err)

	configJSON, _ := json.Marshal(map[string]interface{}{
		"apiKey":    sealed,
		"fromEmail": "outreach@example.com",
	})
	f.mock.ExpectQuery("SELECT (.+) FROM integration_configs").
		WithArgs("user-1", "sendgrid").
		WillReturnRows(sqlmock.NewRows(integrationColumns()).
			AddRow("cfg-1", "user-1", "sendgrid", configJSON, true, nil, "passed", 0, time.Now().UTC()))
}

func emailCampaign() *models.Campaign {
	return &models.Campaign{
		ID:     "camp-1",
		UserID: "user-1",
		Channels: models.ChannelPlan{
			Email: &models.ChannelSettings{Enabled: true},
		},
	}
}

func TestEmailDispatcher_SendsWithTemplateSubject(t *testing.T) {
	var gotPayload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	f := newEmailFixture(t, server.URL)
	f.expectSendGridConfig(t)

	res := &models.CampaignResult{
		ID: "res-1", CampaignID: "camp-1", RecordID: "rec-1",
		Channel: models.ChannelEmail, Status: models.ResultPending, MaxRetries: models.DefaultMaxRetries,
	}
	records := map[string]*models.PropertyRecord{
		"rec-1": {ID: "rec-1", OwnerName: "Jane", OwnerEmail: "jane@example.com", Address: "123 Main St"},
	}
	tpl := &models.MessageTemplate{
		Channel: models.ChannelEmail,
		Subject: "About {{address}}",
		Body:    "Hi {{owner_name}}",
	}

	report := f.dispatcher.DispatchBatch(context.Background(), emailCampaign(), []*models.CampaignResult{res}, records, tpl)

	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, models.ResultSent, res.Status)
	assert.Equal(t, "About 123 Main St", gotPayload["subject"])
}

func TestEmailDispatcher_MissingOwnerEmailRejected(t *testing.T) {
	f := newEmailFixture(t, "http://localhost:0")
	f.expectSendGridConfig(t)

	res := &models.CampaignResult{
		ID: "res-1", CampaignID: "camp-1", RecordID: "rec-1",
		Channel: models.ChannelEmail, Status: models.ResultPending, MaxRetries: models.DefaultMaxRetries,
	}
	records := map[string]*models.PropertyRecord{
		"rec-1": {ID: "rec-1", OwnerName: "Jane", OwnerEmail: ""},
	}

	report := f.dispatcher.DispatchBatch(context.Background(), emailCampaign(), []*models.CampaignResult{res}, records, nil)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, models.ResultFailed, res.Status)
	assert.Equal(t, 0, res.RetryCount)
}
