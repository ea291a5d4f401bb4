package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"paperetl/internal/observability/metrics"
	"paperetl/internal/resilience/circuitbreaker"
	"paperetl/internal/resilience/retry"
)

// ErrConversionFailed indicates the document-structuring service rejected or
// failed to process a PDF.
var ErrConversionFailed = errors.New("document conversion failed")

// Converter turns a PDF byte stream into structured XML. It is an opaque
// remote capability; the PDF parser only depends on this interface.
type Converter interface {
	Convert(ctx context.Context, stream io.Reader) (io.Reader, error)
}

// GrobidClient converts PDFs by calling a GROBID web service. Calls are rate
// limited and wrapped with retry and a circuit breaker so a degraded service
// fails fast instead of stalling every worker.
type GrobidClient struct {
	url     string
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	limiter *rate.Limiter
	retry   retry.Config
}

// NewGrobidClient creates a converter client for the service at url.
func NewGrobidClient(url string, client *http.Client) *GrobidClient {
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	return &GrobidClient{
		url:     url,
		client:  client,
		breaker: circuitbreaker.New(circuitbreaker.ConversionConfig()),
		limiter: rate.NewLimiter(rate.Limit(4), 4),
		retry:   retry.ConversionConfig(),
	}
}

// Convert implements Converter.
func (g *GrobidClient) Convert(ctx context.Context, stream io.Reader) (io.Reader, error) {
	// Buffer the document once so retries can resend it
	document, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("Convert: read: %w", err)
	}

	var converted []byte
	start := time.Now()

	retryErr := retry.WithBackoff(ctx, g.retry, func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		result, err := g.breaker.Execute(func() (interface{}, error) {
			return g.doConvert(ctx, document)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("conversion circuit breaker open, request rejected",
					slog.String("service", "conversion"),
					slog.String("state", g.breaker.State().String()))
			}
			return err
		}

		converted = result.([]byte)
		return nil
	})

	metrics.RecordConversion(time.Since(start), retryErr)
	if retryErr != nil {
		return nil, fmt.Errorf("Convert: %w", retryErr)
	}

	return bytes.NewReader(converted), nil
}

// doConvert performs one conversion request without retry or breaker.
func (g *GrobidClient) doConvert(ctx context.Context, document []byte) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("input", "input.pdf")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(document); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	endpoint := g.url + "/api/processFulltextDocument"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(payload)}
	}

	return payload, nil
}

// PDF parses scientific PDFs by converting them to TEI XML through a remote
// document-structuring service, then delegating to the TEI parser.
type PDF struct {
	// ctx is the ingestion run context; cancelling the run aborts in-flight
	// conversion requests
	ctx       context.Context
	converter Converter
	tei       *TEI
}

// NewPDF creates a PDF parser around the given converter. ctx bounds the
// lifetime of conversion calls; nil means no cancellation.
func NewPDF(ctx context.Context, converter Converter, tei *TEI) *PDF {
	if ctx == nil {
		ctx = context.Background()
	}
	return &PDF{ctx: ctx, converter: converter, tei: tei}
}

// Parse implements Parser. A failed conversion contributes zero articles and
// is logged, never propagated as a stream failure.
func (p *PDF) Parse(stream io.Reader, source string, emit Emit) error {
	if p.converter == nil {
		slog.Warn("no conversion service configured, skipping pdf",
			slog.String("source", source))
		return nil
	}

	converted, err := p.converter.Convert(p.ctx, stream)
	if err != nil {
		slog.Warn("failed to process file",
			slog.String("source", source),
			slog.Any("error", err))
		return nil
	}

	return p.tei.Parse(converted, source, emit)
}
