package sms_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beautydesk/backoffice/pkg/sms"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

func newSender(t *testing.T, p sms.Publisher) *sms.SNS {
	t.Helper()
	s, err := sms.NewSNS(context.Background(), sms.Config{SenderID: "BeautyDesk"}, sms.WithPublisher(p))
	require.NoError(t, err)
	return s
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "+33612345678", sms.Normalize("0033 6 12 34 56 78"))
	assert.Equal(t, "+33612345678", sms.Normalize("+33 6.12.34.56.78"))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, sms.Validate("+33612345678", "hello"))
	assert.ErrorIs(t, sms.Validate("0612345678", "hello"), sms.ErrInvalidMessage)
	assert.ErrorIs(t, sms.Validate("+33612345678", " "), sms.ErrInvalidMessage)
	assert.ErrorIs(t, sms.Validate("+33612345678", strings.Repeat("a", sms.MaxLength+1)), sms.ErrInvalidMessage)
}

func TestSNS_Send(t *testing.T) {
	t.Parallel()

	t.Run("publishes transactional sms", func(t *testing.T) {
		t.Parallel()
		p := new(MockPublisher)
		p.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
			return aws.ToString(in.PhoneNumber) == "+33612345678" &&
				aws.ToString(in.Message) == "Your trial ends soon" &&
				aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue) == "Transactional" &&
				aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue) == "BeautyDesk"
		})).Return(&sns.PublishOutput{MessageId: aws.String("m-1")}, nil).Once()

		require.NoError(t, newSender(t, p).Send(context.Background(), "+33 6 12 34 56 78", "Your trial ends soon"))
		p.AssertExpectations(t)
	})

	t.Run("wraps provider errors", func(t *testing.T) {
		t.Parallel()
		p := new(MockPublisher)
		p.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled")).Once()

		err := newSender(t, p).Send(context.Background(), "+33612345678", "hi")
		assert.ErrorIs(t, err, sms.ErrFailedToSend)
	})

	t.Run("invalid number never reaches provider", func(t *testing.T) {
		t.Parallel()
		p := new(MockPublisher)
		err := newSender(t, p).Send(context.Background(), "12", "hi")
		assert.ErrorIs(t, err, sms.ErrInvalidMessage)
		p.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}
