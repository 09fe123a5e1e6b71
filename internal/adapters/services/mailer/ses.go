package mailer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/domain/valueobject/mails"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
)

// SESClient is the part of the SES v2 API the sender uses.
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESArgs struct {
	Tracer    trace.Tracer
	Logger    *slog.Logger
	Region    string
	AccessKey string
	SecretKey string
	From      string
	// Client overrides the client built from the credentials above.
	Client SESClient
}

// SES delivers email through Amazon SES v2.
type SES struct {
	tracer trace.Tracer
	logger *slog.Logger
	client SESClient
	from   string
}

func NewSES(ctx context.Context, args SESArgs) (*SES, error) {
	const op = "mailer.NewSES"
	if args.From == "" {
		return nil, errorx.Wrap(errors.New("sender address is required"), op)
	}
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}

	if args.Client == nil {
		opts := []func(*config.LoadOptions) error{config.WithRegion(args.Region)}
		if args.AccessKey != "" && args.SecretKey != "" {
			opts = append(opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(args.AccessKey, args.SecretKey, ""),
			))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, errorx.Wrap(err, op)
		}
		args.Client = sesv2.NewFromConfig(cfg)
	}

	return &SES{
		tracer: args.Tracer,
		logger: args.Logger,
		client: args.Client,
		from:   args.From,
	}, nil
}

func (s *SES) SendMail(ctx context.Context, payload mails.Payload) error {
	const op = "mailer.SES.SendMail"
	ctx, span := s.tracer.Start(ctx, "SES.SendMail",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(otelx.EmailAttr(payload.To)))
	defer span.End()

	if err := payload.Validate(); err != nil {
		otelx.RecordSpanError(span, err, "invalid payload")
		return errorx.Wrap(err, op)
	}

	body := &types.Body{}
	if payload.HTML != "" {
		body.Html = &types.Content{Data: aws.String(payload.HTML), Charset: aws.String("UTF-8")}
	}
	if payload.Text != "" {
		body.Text = &types.Content{Data: aws.String(payload.Text), Charset: aws.String("UTF-8")}
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromOrDefault(payload.From, s.from)),
		Destination:      &types.Destination{ToAddresses: []string{payload.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(payload.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "ses rejected the email")
		var throttled *types.TooManyRequestsException
		if errors.As(err, &throttled) {
			return errorx.Wrap(errorx.NewRateLimitExceeded().WithCause(err), op)
		}
		return errorx.Wrap(errorx.NewUpstreamServiceError().WithCause(err), op)
	}

	s.logger.DebugContext(ctx, "email accepted by ses", slog.String("ses.message_id", aws.ToString(out.MessageId)))
	return nil
}
