// Package pipeline drives one job from validation through staging, tool
// invocation, outcome interpretation, ledger settlement, and cleanup. Every
// exit path releases staged files; jobs run concurrently and share nothing
// but the ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"deobf-bot/internal/deobf"
	"deobf-bot/internal/ledger"
	"deobf-bot/internal/links"
	"deobf-bot/internal/metrics"
	"deobf-bot/internal/staging"
)

const (
	// MaxInputSize caps the source document before staging.
	MaxInputSize = 5 * 1024 * 1024
	// MaxArtifactSize is the largest output Presentation can attach.
	MaxArtifactSize = 25 * 1024 * 1024
	// DefaultURLRetention is how long URL-sourced outputs stay on disk for
	// operator inspection before the deferred release fires.
	DefaultURLRetention = 10 * time.Minute

	outputHeader = "-- Deobfuscated By SD [-- https://" + links.PromoInvite + " --]\n"
)

var allowedExtensions = map[string]bool{".lua": true, ".txt": true}

type Pipeline struct {
	ledger  *ledger.Ledger
	stager  *staging.Stager
	locator deobf.Locator
	log     *log.Logger

	// HardTimeout bounds the external tool; zero means the tool default.
	HardTimeout time.Duration
	// URLRetention is the grace delay for URL-sourced outputs.
	URLRetention time.Duration
	// HTTP performs remote source downloads.
	HTTP *http.Client
}

func New(l *ledger.Ledger, s *staging.Stager, locator deobf.Locator, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		ledger:       l,
		stager:       s,
		locator:      locator,
		log:          logger,
		HardTimeout:  deobf.DefaultHardTimeout,
		URLRetention: DefaultURLRetention,
		HTTP:         &http.Client{Timeout: 30 * time.Second},
	}
}

// Process runs one job to a terminal state. It returns either a delivered
// Result or a Failure, never both.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, *Failure) {
	result, failure := p.run(ctx, req)
	if failure != nil {
		metrics.JobsTotal.WithLabelValues(string(failure.Kind)).Inc()
		return nil, failure
	}
	metrics.JobsTotal.WithLabelValues("delivered").Inc()
	metrics.JobDuration.Observe(result.Duration.Seconds())
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Result, *Failure) {
	// Validating. Rejections here must not stage files or spend credit.
	fromURL := strings.TrimSpace(req.SourceURL) != ""
	hasAttachment := req.Attachment != nil
	if fromURL == hasAttachment {
		return nil, fail(FailBadInput, "provide exactly one input: an attached file or a URL")
	}

	name := p.sourceName(req)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return nil, fail(FailBadInput, "only .lua and .txt files are supported")
	}

	var originalSize int64
	if hasAttachment {
		originalSize = req.Attachment.Size
		if int64(len(req.Attachment.Data)) > originalSize {
			originalSize = int64(len(req.Attachment.Data))
		}
		if originalSize > MaxInputSize {
			return nil, fail(FailFileTooLarge, "file too large, maximum size is 5MB")
		}
	} else {
		parsed, err := url.Parse(strings.TrimSpace(req.SourceURL))
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, fail(FailBadInput, "the URL is not valid")
		}
	}

	enabled := p.ledger.Enabled()
	if enabled {
		balance, err := p.ledger.Balance(req.RequesterID)
		if err != nil {
			return nil, p.internal(fmt.Errorf("balance lookup: %w", err))
		}
		if balance < ledger.CostPerJob {
			return nil, fail(FailInsufficientCredit, "you don't have enough tokens")
		}
	}

	// Staging.
	content := []byte(nil)
	if hasAttachment {
		content = req.Attachment.Data
	} else {
		downloaded, failure := p.download(ctx, strings.TrimSpace(req.SourceURL))
		if failure != nil {
			return nil, failure
		}
		content = downloaded
		originalSize = int64(len(downloaded))
	}

	input, output, err := p.stager.Stage(content, ext)
	if err != nil {
		return nil, p.internal(err)
	}
	// Cleanup is the guaranteed final phase: input goes immediately on every
	// path; URL-sourced outputs linger for the retention window.
	defer func() {
		p.stager.ReleaseNow(input)
		if fromURL {
			p.stager.ReleaseAfter(output, p.URLRetention)
		} else {
			p.stager.ReleaseNow(output)
		}
	}()

	// Invoking.
	tool, err := p.locator.Find()
	if err != nil {
		if errors.Is(err, deobf.ErrToolNotFound) {
			p.log.Error("tool discovery failed", "err", err)
			return nil, fail(FailInternal, "MoonsecDeobfuscator executable not found, ensure the tool is built")
		}
		return nil, p.internal(err)
	}

	outcome, err := tool.Invoke(ctx, input.Path(), output.Path(), p.HardTimeout)
	if err != nil {
		if errors.Is(err, deobf.ErrTimeout) {
			return nil, fail(FailToolTimeout, fmt.Sprintf("deobfuscation timed out after %s", p.HardTimeout))
		}
		return nil, p.internal(err)
	}

	// Interpreting. The artifact is the sole success signal: a missing or
	// near-empty output means the tool did not recognize the input, which is
	// a user-facing rejection rather than a crash.
	info, statErr := os.Stat(output.Path())
	if statErr != nil || info.Size() <= 1 {
		return nil, fail(FailToolRejected, "only MoonSec V3 obfuscated files are supported")
	}

	// Settling. Never fails the job; the balance re-read covers both the
	// charged and free-mode reporting paths.
	charged := false
	if p.ledger.Enabled() {
		ok, debitErr := p.ledger.TryDebit(req.RequesterID, ledger.CostPerJob)
		if debitErr != nil {
			p.log.Error("settle debit failed", "requester", req.RequesterID, "err", debitErr)
		}
		charged = ok
		if ok {
			metrics.CreditsSpent.Inc()
		}
	}
	balance, err := p.ledger.Balance(req.RequesterID)
	if err != nil {
		p.log.Error("settle balance read failed", "requester", req.RequesterID, "err", err)
	}

	if err := prependHeader(output.Path()); err != nil {
		p.log.Warn("output header not written", "err", err)
	}
	artifact, err := os.ReadFile(output.Path())
	if err != nil {
		return nil, p.internal(fmt.Errorf("read output: %w", err))
	}
	if int64(len(artifact)) > MaxArtifactSize {
		return nil, fail(FailFileTooLarge,
			fmt.Sprintf("deobfuscated file is too large (%.1fMB), the attachment limit is 25MB", float64(len(artifact))/1024/1024))
	}

	p.log.Info("job delivered",
		"requester", req.RequesterID,
		"source", name,
		"bytes_in", originalSize,
		"bytes_out", len(artifact),
		"elapsed", outcome.Elapsed,
		"charged", charged)

	return &Result{
		Artifact:     artifact,
		Filename:     "deobf_" + name,
		OriginalSize: originalSize,
		OutputSize:   int64(len(artifact)),
		Duration:     outcome.Elapsed,
		Balance:      balance,
		Charged:      charged,
		Links:        links.Extract(string(artifact)),
	}, nil
}

// download fetches a remote source, rejecting oversized payloads as early as
// the declared length allows and aborting the stream past the limit.
func (p *Pipeline) download(ctx context.Context, rawURL string) ([]byte, *Failure) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fail(FailBadInput, "the URL is not valid")
	}
	resp, err := p.HTTP.Do(httpReq)
	if err != nil {
		return nil, fail(FailDownloadFailed, "could not download the file")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(FailDownloadFailed, fmt.Sprintf("download failed with status %s", resp.Status))
	}
	if resp.ContentLength > MaxInputSize {
		return nil, fail(FailFileTooLarge, "file too large, maximum size is 5MB")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxInputSize+1))
	if err != nil {
		return nil, fail(FailDownloadFailed, "could not download the file")
	}
	if len(data) > MaxInputSize {
		return nil, fail(FailFileTooLarge, "file too large, maximum size is 5MB")
	}
	return data, nil
}

func (p *Pipeline) sourceName(req Request) string {
	if req.Attachment != nil {
		return filepath.Base(strings.TrimSpace(req.Attachment.Filename))
	}
	parsed, err := url.Parse(strings.TrimSpace(req.SourceURL))
	if err != nil {
		return ""
	}
	return path.Base(parsed.Path)
}

// internal logs the real cause and returns a generic message so internal
// paths never leak to the requester.
func (p *Pipeline) internal(err error) *Failure {
	cause := err.Error()
	if len(cause) > 200 {
		cause = cause[:200]
	}
	p.log.Error("job failed", "err", cause)
	return fail(FailInternal, "an internal error occurred, please try again")
}

func prependHeader(outputPath string) error {
	content, err := os.ReadFile(outputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, append([]byte(outputHeader), content...), 0o600)
}
