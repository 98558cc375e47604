// internal/campaign/executor_test.go
package campaign

import (
	"context"
	"sync"
	"testing"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/dispatch"
	"campaign-engine/internal/models"
	"campaign-engine/internal/records"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDispatcher marks every result with a fixed status and records that it
// was invoked.
type stubDispatcher struct {
	channel models.Channel
	outcome models.ResultStatus

	mu       sync.Mutex
	invoked  bool
	batchLen int
}

func (s *stubDispatcher) Channel() models.Channel { return s.channel }

func (s *stubDispatcher) DispatchBatch(ctx context.Context, c *models.Campaign, batch []*models.CampaignResult,
	recs map[string]*models.PropertyRecord, tpl *models.MessageTemplate) dispatch.BatchReport {

	s.mu.Lock()
	s.invoked = true
	s.batchLen = len(batch)
	s.mu.Unlock()

	report := dispatch.BatchReport{Channel: s.channel, Configured: true, Attempted: len(batch)}
	for _, res := range batch {
		res.Status = s.outcome
		if s.outcome == models.ResultSent {
			report.Sent++
		} else {
			report.Failed++
		}
	}
	return report
}

func newTestExecutor(t *testing.T, dispatchers ...dispatch.Dispatcher) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db)
	exec := NewExecutor(repo, records.NewRepository(db), NewTemplateStore(db),
		dispatchers, nil, logger.NewTestLogger(t))
	return exec, mock
}

func resultCols() []string {
	return []string{"id", "campaign_id", "record_id", "channel", "status", "sent_at", "delivered_at",
		"responded_at", "retry_count", "max_retries", "error_message", "metadata"}
}

func recordCols() []string {
	return []string{"id", "address", "city", "state", "owner_name", "owner_phone", "owner_email",
		"property_type", "assessed_value", "created_at"}
}

func TestExecutor_Execute_CompletesWhenNothingPends(t *testing.T) {
	sms := &stubDispatcher{channel: models.ChannelSMS, outcome: models.ResultSent}
	exec, mock := newTestExecutor(t, sms)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs("camp-1").
		WillReturnRows(campaignRow(mock, "camp-1", "user-1", models.CampaignPending))

	// Guarded pending|paused -> active transition wins.
	mock.ExpectExec("UPDATE campaigns").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT (.+) FROM campaign_results").
		WithArgs("camp-1").
		WillReturnRows(sqlmock.NewRows(resultCols()).
			AddRow("res-1", "camp-1", "rec-1", "sms", "pending", nil, nil, nil, 0, 3, nil, []byte(`{}`)).
			AddRow("res-2", "camp-1", "rec-2", "sms", "pending", nil, nil, nil, 0, 3, nil, []byte(`{}`)))

	mock.ExpectQuery("SELECT (.+) FROM property_records").
		WillReturnRows(sqlmock.NewRows(recordCols()).
			AddRow("rec-1", "123 Main St", "Austin", "TX", "Jane", "5551234567", "jane@example.com", "retail", 450000.0, now).
			AddRow("rec-2", "9 Oak Ave", "Dallas", "TX", "Bob", "5559876543", "bob@example.com", "office", 900000.0, now))

	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs("camp-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("sent", 2))

	// No pending left: active -> completed.
	mock.ExpectExec("UPDATE campaigns").
		WillReturnResult(sqlmock.NewResult(0, 1))

	report, err := exec.Execute(context.Background(), "user-1", "camp-1")

	require.NoError(t, err)
	assert.Equal(t, models.CampaignCompleted, report.Status)
	assert.True(t, sms.invoked)
	assert.Equal(t, 2, sms.batchLen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_Execute_GuardRejectsActiveCampaign(t *testing.T) {
	exec, mock := newTestExecutor(t)

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs("camp-1").
		WillReturnRows(campaignRow(mock, "camp-1", "user-1", models.CampaignActive))

	// The guard matches zero rows: someone else already holds active.
	mock.ExpectExec("UPDATE campaigns").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := exec.Execute(context.Background(), "user-1", "camp-1")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
}

func TestExecutor_Execute_OwnershipEnforced(t *testing.T) {
	exec, mock := newTestExecutor(t)

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs("camp-1").
		WillReturnRows(campaignRow(mock, "camp-1", "someone-else", models.CampaignPending))

	_, err := exec.Execute(context.Background(), "user-1", "camp-1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotOwner))
}

func TestExecutor_Execute_AllFailedMarksCampaignFailed(t *testing.T) {
	sms := &stubDispatcher{channel: models.ChannelSMS, outcome: models.ResultFailed}
	exec, mock := newTestExecutor(t, sms)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs("camp-1").
		WillReturnRows(campaignRow(mock, "camp-1", "user-1", models.CampaignPending))
	mock.ExpectExec("UPDATE campaigns").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT (.+) FROM campaign_results").
		WithArgs("camp-1").
		WillReturnRows(sqlmock.NewRows(resultCols()).
			AddRow("res-1", "camp-1", "rec-1", "sms", "pending", nil, nil, nil, 2, 3, nil, []byte(`{}`)))

	mock.ExpectQuery("SELECT (.+) FROM property_records").
		WillReturnRows(sqlmock.NewRows(recordCols()).
			AddRow("rec-1", "123 Main St", "Austin", "TX", "Jane", "5551234567", "jane@example.com", "retail", 450000.0, now))

	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs("camp-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("failed", 1))

	mock.ExpectExec("UPDATE campaigns").
		WillReturnResult(sqlmock.NewResult(0, 1))

	report, err := exec.Execute(context.Background(), "user-1", "camp-1")

	require.NoError(t, err)
	assert.Equal(t, models.CampaignFailed, report.Status)
}

func TestExecutor_Execute_ChannelsRunIndependently(t *testing.T) {
	sms := &stubDispatcher{channel: models.ChannelSMS, outcome: models.ResultSent}
	email := &stubDispatcher{channel: models.ChannelEmail, outcome: models.ResultFailed}
	exec, mock := newTestExecutor(t, sms, email)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs("camp-1").
		WillReturnRows(campaignRow(mock, "camp-1", "user-1", models.CampaignPending))
	mock.ExpectExec("UPDATE campaigns").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT (.+) FROM campaign_results").
		WithArgs("camp-1").
		WillReturnRows(sqlmock.NewRows(resultCols()).
			AddRow("res-1", "camp-1", "rec-1", "sms", "pending", nil, nil, nil, 0, 3, nil, []byte(`{}`)).
			AddRow("res-2", "camp-1", "rec-2", "email", "pending", nil, nil, nil, 0, 3, nil, []byte(`{}`)))

	mock.ExpectQuery("SELECT (.+) FROM property_records").
		WillReturnRows(sqlmock.NewRows(recordCols()).
			AddRow("rec-1", "123 Main St", "Austin", "TX", "Jane", "5551234567", "jane@example.com", "retail", 450000.0, now).
			AddRow("rec-2", "9 Oak Ave", "Dallas", "TX", "Bob", "5559876543", "bob@example.com", "office", 900000.0, now))

	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs("camp-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("sent", 1).AddRow("failed", 1))

	// Mixed outcomes, no pending left: the campaign still completes.
	mock.ExpectExec("UPDATE campaigns").
		WillReturnResult(sqlmock.NewResult(0, 1))

	report, err := exec.Execute(context.Background(), "user-1", "camp-1")

	require.NoError(t, err)
	assert.Equal(t, models.CampaignCompleted, report.Status)
	assert.True(t, sms.invoked, "sms channel must run")
	assert.True(t, email.invoked, "email channel must run even while sms is in flight")
	assert.Len(t, report.Channels, 2)
}
