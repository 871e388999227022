package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beautydesk/backoffice/pkg/audit"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Append(ctx context.Context, entry audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockStorage) Query(ctx context.Context, criteria audit.Criteria) ([]audit.Entry, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestTrailRecord(t *testing.T) {
	t.Parallel()

	t.Run("fills entry from arguments and context", func(t *testing.T) {
		t.Parallel()
		storage := audit.NewMemoryStorage()
		trail := audit.NewTrail(storage, audit.WithClock(func() time.Time { return fixedNow }))

		orgID := uuid.New()
		ctx := audit.WithRequestMeta(context.Background(), audit.RequestMeta{
			IP:        "203.0.113.7",
			UserAgent: "curl/8",
			RequestID: "req-1",
		})

		entry, err := trail.Record(ctx, "admin@example.com", "organization.plan_changed",
			audit.Target{Type: "organization", ID: orgID.String()},
			map[string]string{"plan": "DUO"},
			map[string]string{"plan": "TEAM"},
			audit.WithOrganization(orgID),
			audit.WithMetadata("reason", "customer request"),
		)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, entry.ID)
		assert.Equal(t, fixedNow, entry.CreatedAt)
		assert.Equal(t, "203.0.113.7", entry.IP)
		assert.Equal(t, "curl/8", entry.UserAgent)
		assert.Equal(t, "req-1", entry.RequestID)
		require.NotNil(t, entry.OrganizationID)
		assert.Equal(t, orgID, *entry.OrganizationID)
		assert.JSONEq(t, `{"plan":"DUO"}`, string(entry.Before))
		assert.JSONEq(t, `{"plan":"TEAM"}`, string(entry.After))
		assert.Equal(t, "customer request", entry.Metadata["reason"])

		stored := storage.Entries()
		require.Len(t, stored, 1)
		assert.Equal(t, entry, stored[0])
	})

	t.Run("nil snapshots are omitted", func(t *testing.T) {
		t.Parallel()
		trail := audit.NewTrail(audit.NewMemoryStorage())
		entry, err := trail.Record(context.Background(), audit.ActorSystem, "notification.sent",
			audit.Target{Type: "organization"}, nil, json.RawMessage(`{"key":"X"}`))
		require.NoError(t, err)
		assert.Nil(t, entry.Before)
		assert.JSONEq(t, `{"key":"X"}`, string(entry.After))
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		trail := audit.NewTrail(audit.NewMemoryStorage())
		ctx := context.Background()

		_, err := trail.Record(ctx, "", "a", audit.Target{Type: "t"}, nil, nil)
		assert.ErrorIs(t, err, audit.ErrEntryValidation)
		_, err = trail.Record(ctx, "x", "", audit.Target{Type: "t"}, nil, nil)
		assert.ErrorIs(t, err, audit.ErrEntryValidation)
		_, err = trail.Record(ctx, "x", "a", audit.Target{}, nil, nil)
		assert.ErrorIs(t, err, audit.ErrEntryValidation)
	})

	t.Run("unencodable snapshot", func(t *testing.T) {
		t.Parallel()
		trail := audit.NewTrail(audit.NewMemoryStorage())
		_, err := trail.Record(context.Background(), "x", "a", audit.Target{Type: "t"}, make(chan int), nil)
		assert.ErrorIs(t, err, audit.ErrInvalidSnapshot)
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		t.Parallel()
		storage := new(MockStorage)
		storage.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		trail := audit.NewTrail(storage)
		_, err := trail.Record(context.Background(), "x", "a", audit.Target{Type: "t"}, nil, nil)
		assert.ErrorIs(t, err, audit.ErrStorageFailed)
		storage.AssertExpectations(t)
	})

	t.Run("sensitive metadata filtered", func(t *testing.T) {
		t.Parallel()
		trail := audit.NewTrail(audit.NewMemoryStorage())
		entry, err := trail.Record(context.Background(), "x", "a", audit.Target{Type: "t"}, nil, nil,
			audit.WithMetadata("webhook_secret", "s3cr3t"),
			audit.WithMetadata("contact_phone", "+33612345678"),
		)
		require.NoError(t, err)
		assert.NotContains(t, entry.Metadata, "webhook_secret")
		assert.Equal(t, "+3********78", entry.Metadata["contact_phone"])
	})

	t.Run("in binds another storage", func(t *testing.T) {
		t.Parallel()
		primary := audit.NewMemoryStorage()
		tx := audit.NewMemoryStorage()
		trail := audit.NewTrail(primary)

		_, err := trail.In(tx).Record(context.Background(), "x", "a", audit.Target{Type: "t"}, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, primary.Entries())
		assert.Len(t, tx.Entries(), 1)
	})

	t.Run("nil storage panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { audit.NewTrail(nil) })
	})
}
