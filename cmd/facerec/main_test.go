package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/opaque/facerec/pkg/dataset"
)

// resetFlags restores cmd's flags to their defaults; cobra keeps parsed
// values on the package-level commands between Execute calls.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatalf("reset --%s: %v", f.Name, err)
		}
		f.Changed = false
	})
}

func writeTrainCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.csv")
	data := "id,p0,p1,p2\na,1,2,3\nb,2,4,6.5\nc,0,1,1\nd,3,3,2\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetOut(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if got := out.String(); got != "facerec dev\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestProjectCommand(t *testing.T) {
	resetFlags(t, projectCmd)
	train := writeTrainCSV(t)
	outPath := filepath.Join(t.TempDir(), "features.csv")

	rootCmd.SetArgs([]string{"project", "--train", train, "--rank", "2", "--out", outPath})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("project failed: %v", err)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d output rows, want 4:\n%s", len(lines), raw)
	}
	for i, id := range []string{"a", "b", "c", "d"} {
		cells := strings.Split(lines[i], ",")
		if cells[0] != id {
			t.Errorf("row %d id = %q, want %q", i, cells[0], id)
		}
		if len(cells) != 3 {
			t.Errorf("row %d has %d cells, want id plus 2 coordinates", i, len(cells))
		}
	}
}

func TestProjectCommandMissingTrain(t *testing.T) {
	resetFlags(t, projectCmd)
	rootCmd.SetArgs([]string{"project", "--train", filepath.Join(t.TempDir(), "missing.csv")})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an error for a missing training file")
	}
}

func TestProjectCommandLimitUnitFvecs(t *testing.T) {
	resetFlags(t, projectCmd)
	train := writeTrainCSV(t)
	outPath := filepath.Join(t.TempDir(), "features.fvecs")

	rootCmd.SetArgs([]string{"project", "--train", train, "--limit", "3", "--unit", "--out", outPath})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("project failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := dataset.ReadFvecs(f)
	if err != nil {
		t.Fatalf("ReadFvecs failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d faces, want 3 after --limit", len(rows))
	}
	for i, row := range rows {
		var norm float64
		for _, v := range row {
			norm += v * v
		}
		// Centered data can project to the origin; everything else is unit length.
		if norm != 0 && math.Abs(norm-1) > 1e-5 {
			t.Errorf("face %d squared norm = %f, want 1", i, norm)
		}
	}
}

func TestProjectCommandNegativeLimit(t *testing.T) {
	resetFlags(t, projectCmd)
	rootCmd.SetArgs([]string{"project", "--train", writeTrainCSV(t), "--limit", "-1"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an error for a negative --limit")
	}
}
