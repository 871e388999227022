package sms

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
)

// MaxLength is the longest body accepted, three concatenated GSM segments.
const MaxLength = 459

// Config holds AWS SNS settings for transactional SMS.
type Config struct {
	Region      string `env:"SMS_AWS_REGION" envDefault:"eu-west-1"`
	AccessKeyID string `env:"SMS_AWS_ACCESS_KEY_ID"`
	SecretKey   string `env:"SMS_AWS_SECRET_ACCESS_KEY"`
	Endpoint    string `env:"SMS_AWS_ENDPOINT"`
	SenderID    string `env:"SMS_SENDER_ID" envDefault:"BeautyDesk"`
	Enabled     bool   `env:"SMS_ENABLED"`
}

// Sender delivers one text message.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Publisher is the subset of the SNS client used here.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNS sends SMS through Amazon SNS direct publish.
type SNS struct {
	client   Publisher
	senderID string
}

// Option configures an SNS sender.
type Option func(*snsOptions)

type snsOptions struct {
	client   Publisher
	loadOpts []func(*config.LoadOptions) error
}

// WithPublisher sets a pre-configured client, e.g. a mock.
func WithPublisher(p Publisher) Option {
	return func(o *snsOptions) { o.client = p }
}

// WithLoadOption adds an AWS config load option.
func WithLoadOption(fn func(*config.LoadOptions) error) Option {
	return func(o *snsOptions) { o.loadOpts = append(o.loadOpts, fn) }
}

// NewSNS builds a sender from cfg. Static credentials are used when both keys
// are set, otherwise the default AWS credential chain applies.
func NewSNS(ctx context.Context, cfg Config, opts ...Option) (*SNS, error) {
	o := &snsOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.client == nil {
		if cfg.Region == "" {
			return nil, fmt.Errorf("%w: region is required", ErrInvalidConfig)
		}
		load := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			load = append(load, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		load = append(load, o.loadOpts...)

		awsCfg, err := config.LoadDefaultConfig(ctx, load...)
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
		o.client = sns.NewFromConfig(awsCfg, func(so *sns.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
	}

	return &SNS{client: o.client, senderID: cfg.SenderID}, nil
}

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// Normalize strips spaces, dots and dashes and converts a leading 00 to +.
func Normalize(phone string) string {
	p := strings.NewReplacer(" ", "", ".", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(p, "00") {
		p = "+" + p[2:]
	}
	return p
}

// Validate checks the destination and body of a message.
func Validate(to, body string) error {
	if !e164.MatchString(Normalize(to)) {
		return fmt.Errorf("%w: %q is not an E.164 number", ErrInvalidMessage, to)
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(body) > MaxLength {
		return fmt.Errorf("%w: body longer than %d characters", ErrInvalidMessage, MaxLength)
	}
	return nil
}

// Send publishes body to the phone number to as a transactional SMS.
func (s *SNS) Send(ctx context.Context, to, body string) error {
	if err := Validate(to, body); err != nil {
		return err
	}

	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(Normalize(to)),
		Message:           aws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: %s: %s", ErrFailedToSend, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return errors.Join(ErrFailedToSend, err)
	}
	return nil
}
