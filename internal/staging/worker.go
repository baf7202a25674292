// Package staging drives the external desktop-GIS worker that reprojects
// source tables and stages service definitions. The worker is an opaque
// collaborator: we hand it a JSON request on stdin and read a JSON result
// from stdout. Everything geoprocessing-shaped (scratch geodatabase
// recreation, the Web Mercator transform, map template cleanup) is the
// worker's responsibility; this package only frames requests and surfaces
// failures.
package staging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/agrc/agol-shelf/internal/constants"
	"github.com/agrc/agol-shelf/internal/logging"
)

// Data types the worker reports for a described source.
const (
	DataTypeFeatureClass = "FeatureClass"
	DataTypeTable        = "Table"
)

// ExecError is a failure reported by the staging worker itself, as opposed
// to a failure to run it. The worker's message is carried verbatim so the
// log row records what actually went wrong in the geoprocessing step.
type ExecError struct {
	Verb    string
	Message string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("staging worker %s failed: %s", e.Verb, e.Message)
}

// DescribeResult is the worker's answer to a describe request.
type DescribeResult struct {
	DataType  string `json:"dataType"`
	ShapeType string `json:"shapeType,omitempty"`
}

// IsTable reports whether the source is a standalone table. Tables are
// copied verbatim by the worker and are never published as feature layers.
func (r DescribeResult) IsTable() bool {
	return r.DataType == DataTypeTable
}

// StageResult is the worker's answer to a stage request.
type StageResult struct {
	SDPath    string `json:"sdPath"`
	ShapeType string `json:"shapeType,omitempty"`
}

// request is the envelope written to the worker's stdin.
type request struct {
	Verb      string `json:"verb"`
	Source    string `json:"source,omitempty"`
	Workspace string `json:"workspace,omitempty"`
	Project   string `json:"project,omitempty"`
	Map       string `json:"map,omitempty"`
	Title     string `json:"title,omitempty"`
}

// response is the envelope read from the worker's stdout. Exactly one of
// Result or Error is set.
type response struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Worker invokes the configured staging command once per request.
type Worker struct {
	command     []string
	sdePath     string
	projectPath string
	mapName     string
	logger      *logging.Logger
}

// NewWorker parses the configured staging command line. The first field is
// the executable, the rest are fixed leading arguments.
func NewWorker(command, sdePath, projectPath, mapName string, logger *logging.Logger) (*Worker, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("staging command is not configured")
	}
	return &Worker{
		command:     fields,
		sdePath:     sdePath,
		projectPath: projectPath,
		mapName:     mapName,
		logger:      logger,
	}, nil
}

// Describe asks the worker what kind of data a source table is.
func (w *Worker) Describe(ctx context.Context, source string) (*DescribeResult, error) {
	req := request{
		Verb:      "describe",
		Source:    source,
		Workspace: w.sdePath,
	}

	var result DescribeResult
	if err := w.run(ctx, req, &result); err != nil {
		return nil, err
	}
	if result.DataType == "" {
		return nil, &ExecError{Verb: "describe", Message: "worker returned no data type"}
	}
	return &result, nil
}

// Stage reprojects the source into the scratch workspace, binds it into the
// map template, and exports a staged service definition. The worker
// recreates the scratch table if it already exists and detaches the map
// layer before returning, success or failure.
func (w *Worker) Stage(ctx context.Context, source, title string) (*StageResult, error) {
	req := request{
		Verb:      "stage",
		Source:    source,
		Workspace: w.sdePath,
		Project:   w.projectPath,
		Map:       w.mapName,
		Title:     title,
	}

	var result StageResult
	if err := w.run(ctx, req, &result); err != nil {
		return nil, err
	}
	if result.SDPath == "" {
		return nil, &ExecError{Verb: "stage", Message: "worker returned no service definition path"}
	}
	return &result, nil
}

// run executes one worker invocation: request on stdin, response on stdout.
func (w *Worker) run(ctx context.Context, req request, out interface{}) error {
	runCtx, cancel := context.WithTimeout(ctx, constants.StagingTimeout)
	defer cancel()

	input, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode staging request: %w", err)
	}

	w.logger.Debug().
		Str("verb", req.Verb).
		Str("source", req.Source).
		Msg("Invoking staging worker")

	cmd := exec.CommandContext(runCtx, w.command[0], w.command[1:]...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return &ExecError{Verb: req.Verb, Message: "timed out"}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return &ExecError{Verb: req.Verb, Message: msg}
	}

	var resp response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return fmt.Errorf("failed to decode staging response: %w", err)
	}
	if !resp.OK {
		return &ExecError{Verb: req.Verb, Message: resp.Error}
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("failed to decode staging result: %w", err)
	}
	return nil
}
