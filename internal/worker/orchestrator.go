// Package worker runs the out-of-process extraction/reconstruction
// capability. One invocation means one process: the request payload is
// streamed to the worker's stdin, stdout and stderr are drained
// concurrently, and a timer guarantees a hung worker is killed rather than
// stalling the caller. Every invocation resolves to exactly one outcome.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// waitDelay bounds how long Wait may block on the output pipes after the
// worker process itself is gone. A descendant that inherited the pipes and
// outlived the worker would otherwise hold Wait hostage.
const waitDelay = time.Second

// ExtractResult is the success envelope for the extraction direction.
// Field names follow the worker's wire format.
type ExtractResult struct {
	Success          bool           `json:"success"`
	XMLContent       string         `json:"xml_content"`
	Metadata         ResultMetadata `json:"metadata"`
	ExtractionMethod string         `json:"extraction_method"`
}

// ResultMetadata mirrors the document metadata block of the worker result.
type ResultMetadata struct {
	Title            string `json:"title"`
	Author           string `json:"author"`
	Subject          string `json:"subject"`
	Creator          string `json:"creator"`
	Producer         string `json:"producer"`
	CreationDate     string `json:"creation_date"`
	ModificationDate string `json:"modification_date"`
	PageCount        int    `json:"page_count"`
}

// ReconstructRequest is the request envelope for the reconstruction
// direction, written to the worker's stdin as a single finalized JSON write.
type ReconstructRequest struct {
	XMLContent string `json:"xmlContent"`
	FileName   string `json:"fileName"`
}

// ReconstructResult is the success envelope for the reconstruction
// direction. PDFData is base64-encoded.
type ReconstructResult struct {
	Success          bool   `json:"success"`
	PDFData          string `json:"pdf_data"`
	Filename         string `json:"filename"`
	Size             int    `json:"size"`
	ConversionMethod string `json:"conversion_method"`
}

// errorEnvelope is the failure shape both directions share.
type errorEnvelope struct {
	Error            string `json:"error"`
	ExtractionMethod string `json:"extraction_method"`
}

// Orchestrator invokes a configured worker command. The command is injected
// at construction; nothing is resolved from ambient state mid-request.
type Orchestrator struct {
	command []string
	timeout time.Duration
}

// NewOrchestrator creates an Orchestrator for the given command line (name
// followed by fixed arguments) and per-invocation timeout.
func NewOrchestrator(command []string, timeout time.Duration) (*Orchestrator, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("worker command cannot be empty")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("worker timeout must be positive, got %s", timeout)
	}
	return &Orchestrator{command: command, timeout: timeout}, nil
}

// Available reports whether an orchestrator is configured. A nil receiver is
// a valid "no worker" orchestrator.
func (o *Orchestrator) Available() bool {
	return o != nil
}

// Invoke writes payload to the worker's stdin, closes it, and collects the
// accumulated stdout once the process exits cleanly. Failures are returned
// as *Error with the appropriate kind; on timeout the process is killed and
// reaped before the error is returned, so no orphan survives the call.
func (o *Orchestrator) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	cmd := exec.Command(o.command[0], o.command[1:]...)

	// The worker gets its own process group so a timeout kill reaches
	// interpreter wrappers and their helpers, not just the direct child.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &Error{Kind: KindSpawn, Message: "failed to open worker stdin", Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &Error{Kind: KindSpawn, Message: fmt.Sprintf("failed to start worker %q", o.command[0]), Err: err}
	}

	// The worker learns the payload is complete by observing EOF. A write
	// error (worker exited early, broken pipe) is not an outcome by
	// itself; the exit status decides.
	go func() {
		_, _ = stdin.Write(payload)
		_ = stdin.Close()
	}()

	// stdout and stderr land in independent buffers drained by os/exec's
	// own copiers, so neither pipe can block the other. Wait is called on
	// every path below to reap the process.
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case waitErr := <-done:
		return classifyExit(waitErr, stdout.Bytes(), stderr.String())
	case <-timer.C:
		killProcessGroup(cmd)
		<-done
		return nil, &Error{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("worker did not exit within %s", o.timeout),
			Stderr:  strings.TrimSpace(stderr.String()),
		}
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done
		return nil, &Error{Kind: KindTimeout, Message: "invocation cancelled", Err: ctx.Err()}
	}
}

// killProcessGroup signals the worker's whole process group. Falls back to
// killing the direct child if the group signal fails.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}

func classifyExit(waitErr error, stdout []byte, stderr string) ([]byte, error) {
	if waitErr == nil {
		return stdout, nil
	}
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		// The worker exited cleanly but a leftover descendant kept the
		// pipes open past the grace period; the collected output decides.
		return stdout, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return nil, &Error{
			Kind:     KindExecution,
			Message:  fmt.Sprintf("worker exited with code %d", exitErr.ExitCode()),
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr),
			Err:      waitErr,
		}
	}
	return nil, &Error{Kind: KindExecution, Message: "worker wait failed", Err: waitErr}
}

// InvokeExtract sends raw PDF bytes to the worker and parses the extraction
// result envelope.
func (o *Orchestrator) InvokeExtract(ctx context.Context, pdfBytes []byte) (*ExtractResult, error) {
	out, err := o.Invoke(ctx, pdfBytes)
	if err != nil {
		return nil, err
	}

	var result ExtractResult
	if err := decodeEnvelope(out, &result); err != nil {
		return nil, err
	}
	if !result.Success || result.XMLContent == "" {
		return nil, parseError(out, "extraction result missing xml_content")
	}
	return &result, nil
}

// InvokeReconstruct sends a reconstruction request envelope to the worker
// and parses the result.
func (o *Orchestrator) InvokeReconstruct(ctx context.Context, req ReconstructRequest) (*ReconstructResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reconstruction request: %w", err)
	}

	out, invokeErr := o.Invoke(ctx, payload)
	if invokeErr != nil {
		return nil, invokeErr
	}

	var result ReconstructResult
	if err := decodeEnvelope(out, &result); err != nil {
		return nil, err
	}
	if !result.Success || result.PDFData == "" {
		return nil, parseError(out, "reconstruction result missing pdf_data")
	}
	return &result, nil
}

// decodeEnvelope parses stdout into the success envelope, falling back to
// the shared error envelope. Output matching neither shape is an
// OutputParseError: the worker claimed success but produced unusable data.
func decodeEnvelope(out []byte, success interface{}) error {
	if err := json.Unmarshal(out, success); err == nil {
		// Check the error shape too; a worker may exit 0 while
		// reporting a handled failure.
		var failure errorEnvelope
		if json.Unmarshal(out, &failure) == nil && failure.Error != "" {
			return &Error{Kind: KindExecution, Message: failure.Error}
		}
		return nil
	}
	return parseError(out, "worker output is not valid JSON")
}

func parseError(out []byte, message string) *Error {
	preview := string(out)
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return &Error{Kind: KindOutputParse, Message: message, Stderr: strings.TrimSpace(preview)}
}
