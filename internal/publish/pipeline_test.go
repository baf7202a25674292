package publish

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/agrc/agol-shelf/internal/logging"
	"github.com/agrc/agol-shelf/internal/models"
	"github.com/agrc/agol-shelf/internal/staging"
)

// fakePortal records the upload sequence and can fail at a chosen step.
type fakePortal struct {
	calls    []string
	failStep string
}

func (f *fakePortal) step(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failStep {
		return fmt.Errorf("%s exploded, details inside", name)
	}
	return nil
}

func (f *fakePortal) AddItem(ctx context.Context, title, sdPath string) (string, error) {
	return "sd-item", f.step("add")
}

func (f *fakePortal) PublishItem(ctx context.Context, sdItemID string) (string, string, error) {
	return "pub-item", "https://svc.test/rest/services/X/FeatureServer", f.step("publish")
}

func (f *fakePortal) ShareItem(ctx context.Context, itemID, folderID string, everyone, org bool, groupIDs []string) error {
	return f.step("share")
}

func (f *fakePortal) ProtectItem(ctx context.Context, itemID, folderID string, enable bool) error {
	return f.step("protect")
}

func (f *fakePortal) UpdateItem(ctx context.Context, itemID, folderID string, fields url.Values) error {
	return f.step("update")
}

func (f *fakePortal) MoveItem(ctx context.Context, itemID, currentFolderID, destFolderID string) error {
	return f.step("move")
}

func (f *fakePortal) UpdateCapabilities(ctx context.Context, serviceURL, capabilities string) error {
	return f.step("capabilities")
}

func (f *fakePortal) SearchGroups(ctx context.Context, title string) ([]models.Group, error) {
	return []models.Group{{ID: "g1", Title: title}}, nil
}

func (f *fakePortal) ListFolders(ctx context.Context) ([]models.Folder, error) {
	return []models.Folder{{ID: "f1", Title: "AGRC_Shelved"}}, nil
}

func (f *fakePortal) CreateFolder(ctx context.Context, title string) (*models.Folder, error) {
	return &models.Folder{ID: "f2", Title: title}, nil
}

// fakeStager answers describe and stage from canned results.
type fakeStager struct {
	tables   map[string]bool
	stageErr error
}

func (f *fakeStager) Describe(ctx context.Context, source string) (*staging.DescribeResult, error) {
	if f.tables[source] {
		return &staging.DescribeResult{DataType: staging.DataTypeTable}, nil
	}
	return &staging.DescribeResult{DataType: staging.DataTypeFeatureClass, ShapeType: "Polygon"}, nil
}

func (f *fakeStager) Stage(ctx context.Context, source, title string) (*staging.StageResult, error) {
	if f.stageErr != nil {
		return nil, f.stageErr
	}
	return &staging.StageResult{SDPath: "/tmp/x.sd", ShapeType: "Polygon"}, nil
}

func testPipeline(t *testing.T, portal *fakePortal, stager *fakeStager) (*Pipeline, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "log.csv")
	p := NewPipeline(portal, stager, nil, logging.NewLogger(), Options{
		Protect: true,
		LogPath: logPath,
	})
	return p, logPath
}

var testMetadata = map[string]models.Metadata{
	"Habitat_Pigeon": {Tags: "", Description: "d", Snippet: "s"},
}

func shelvedDataset() models.Dataset {
	return models.Dataset{
		QualifiedName: "SGID10.BIOSCIENCE.Habitat_Pigeon",
		Title:         "Pigeon Habitat",
		Credit:        "DWR",
		Disposition:   models.DispositionShelved,
	}
}

func TestRunUploadSequenceOrder(t *testing.T) {
	portal := &fakePortal{}
	stager := &fakeStager{}
	p, logPath := testPipeline(t, portal, stager)

	result, err := p.Run(context.Background(), []models.Dataset{shelvedDataset()}, testMetadata, "GL")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Published != 1 || result.Failed != 0 {
		t.Errorf("unexpected result %+v", result)
	}

	want := []string{"add", "publish", "share", "protect", "update", "move", "move", "capabilities"}
	if len(portal.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", portal.calls, want)
	}
	for i := range want {
		if portal.calls[i] != want[i] {
			t.Errorf("step %d = %s, want %s", i, portal.calls[i], want[i])
		}
	}

	rows := readLog(t, logPath)
	if len(rows) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(rows))
	}
	if rows[0][0] != "Pigeon Habitat" || rows[0][1] != "shelved" || rows[0][7] != "pub-item" {
		t.Errorf("unexpected log row %v", rows[0])
	}
	if rows[0][6] != "https://opendata.gis.utah.gov/datasets/pigeon-habitat" {
		t.Errorf("unexpected endpoint %q", rows[0][6])
	}
}

func TestRunSkipsTables(t *testing.T) {
	portal := &fakePortal{}
	stager := &fakeStager{tables: map[string]bool{"SGID10.BIOSCIENCE.Habitat_Pigeon": true}}
	p, logPath := testPipeline(t, portal, stager)

	result, err := p.Run(context.Background(), []models.Dataset{shelvedDataset()}, testMetadata, "GL")
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped != 1 || result.Published != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(portal.calls) != 0 {
		t.Errorf("expected no portal calls for a table, got %v", portal.calls)
	}

	rows := readLog(t, logPath)
	if rows[0][1] != "Table: not uploaded" {
		t.Errorf("unexpected log row %v", rows[0])
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	portal := &fakePortal{failStep: "publish"}
	stager := &fakeStager{}
	p, logPath := testPipeline(t, portal, stager)

	second := shelvedDataset()
	second.QualifiedName = "SGID10.WATER.Lakes"
	second.Title = "Lakes"

	datasets := []models.Dataset{shelvedDataset(), second}
	result, err := p.Run(context.Background(), datasets, testMetadata, "GL")
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 2 {
		t.Errorf("expected both datasets to fail at publish, got %+v", result)
	}

	rows := readLog(t, logPath)
	if len(rows) != 2 {
		t.Fatalf("every dataset gets a log row, got %d", len(rows))
	}
	// error text commas become semicolons
	if rows[0][1] != "publish failed: publish exploded; details inside" &&
		rows[0][1] != "publish exploded; details inside" {
		t.Errorf("unexpected failure text %q", rows[0][1])
	}
}

func TestRunStagingErrorLoggedVerbatim(t *testing.T) {
	portal := &fakePortal{}
	stager := &fakeStager{stageErr: &staging.ExecError{Verb: "stage", Message: "ERROR 000732: Dataset, does not exist"}}
	p, logPath := testPipeline(t, portal, stager)

	_, err := p.Run(context.Background(), []models.Dataset{shelvedDataset()}, testMetadata, "GL")
	if err != nil {
		t.Fatal(err)
	}

	rows := readLog(t, logPath)
	if rows[0][1] != "ERROR 000732: Dataset; does not exist" {
		t.Errorf("expected worker message with commas neutralized, got %q", rows[0][1])
	}
}

func TestRunDryRunSkipsUpload(t *testing.T) {
	portal := &fakePortal{}
	stager := &fakeStager{}
	logPath := filepath.Join(t.TempDir(), "log.csv")
	p := NewPipeline(portal, stager, nil, logging.NewLogger(), Options{
		DryRun:  true,
		LogPath: logPath,
	})

	result, err := p.Run(context.Background(), []models.Dataset{shelvedDataset()}, testMetadata, "GL")
	if err != nil {
		t.Fatal(err)
	}
	if result.Published != 1 {
		t.Errorf("dry run still counts the dataset, got %+v", result)
	}
	if len(portal.calls) != 0 {
		t.Errorf("dry run must not touch the portal, got %v", portal.calls)
	}

	rows := readLog(t, logPath)
	if rows[0][7] != "dry-run" {
		t.Errorf("expected dry-run placeholder id, got %q", rows[0][7])
	}
}

func readLog(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}
