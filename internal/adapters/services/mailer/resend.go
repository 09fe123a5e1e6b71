package mailer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/domain/valueobject/mails"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
)

const DefaultResendBaseURL = "https://api.resend.com/"

type ResendArgs struct {
	Tracer     trace.Tracer
	Logger     *slog.Logger
	APIKey     string
	BaseURL    string
	From       string
	HTTPClient *http.Client
}

// Resend delivers email through the Resend API.
type Resend struct {
	tracer trace.Tracer
	logger *slog.Logger
	client *resend.Client
	from   string
}

func NewResend(args ResendArgs) (*Resend, error) {
	const op = "mailer.NewResend"
	if args.APIKey == "" {
		return nil, errorx.Wrap(errors.New("resend api key is required"), op)
	}
	if args.From == "" {
		return nil, errorx.Wrap(errors.New("sender address is required"), op)
	}
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	if args.BaseURL == "" {
		args.BaseURL = DefaultResendBaseURL
	}
	// the SDK resolves endpoint paths against the base, which needs the slash
	baseURL, err := url.Parse(strings.TrimRight(args.BaseURL, "/") + "/")
	if err != nil {
		return nil, errorx.Wrap(err, op)
	}

	hc := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	if args.HTTPClient != nil {
		c := *args.HTTPClient
		hc = &c
	}
	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc.Transport = statusRecorder{next: next}

	client := resend.NewCustomClient(hc, args.APIKey)
	client.BaseURL = baseURL

	return &Resend{
		tracer: args.Tracer,
		logger: args.Logger,
		client: client,
		from:   args.From,
	}, nil
}

func (s *Resend) SendMail(ctx context.Context, payload mails.Payload) error {
	const op = "mailer.Resend.SendMail"
	ctx, span := s.tracer.Start(ctx, "Resend.SendMail",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(otelx.EmailAttr(payload.To)))
	defer span.End()

	if err := payload.Validate(); err != nil {
		otelx.RecordSpanError(span, err, "invalid payload")
		return errorx.Wrap(err, op)
	}

	status := &responseStatus{}
	sent, err := s.client.Emails.SendWithContext(context.WithValue(ctx, responseStatusKey{}, status), &resend.SendEmailRequest{
		From:    fromOrDefault(payload.From, s.from),
		To:      []string{payload.To},
		Subject: payload.Subject,
		Html:    payload.HTML,
		Text:    payload.Text,
	})
	if status.code != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status.code))
	}
	if err != nil {
		otelx.RecordSpanError(span, err, "resend rejected the email")
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return errorx.Wrap(errorx.NewUpstreamTimeout().WithCause(err), op)
		case status.code == http.StatusTooManyRequests:
			return errorx.Wrap(errorx.NewRateLimitExceeded().WithCause(err), op)
		}
		return errorx.Wrap(errorx.NewUpstreamServiceError().WithCause(err), op)
	}

	s.logger.DebugContext(ctx, "email accepted by resend", slog.String("resend.id", sent.Id))
	return nil
}

type responseStatusKey struct{}

type responseStatus struct {
	code int
}

// statusRecorder hands the upstream status code back to SendMail, which the
// SDK folds into a plain error.
type statusRecorder struct {
	next http.RoundTripper
}

func (t statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.next.RoundTrip(req)
	if err == nil {
		if s, ok := req.Context().Value(responseStatusKey{}).(*responseStatus); ok {
			s.code = res.StatusCode
		}
	}
	return res, err
}
