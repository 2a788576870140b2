package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/opaque/facerec/pkg/dataset"
	"github.com/opaque/facerec/pkg/facemodel"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Fit on a training set and project faces",
	Long: `Fit an eigenface model on the training faces and write the projected
coordinates of the query faces as CSV, one face per row.

Datasets are read by extension: .csv (one face per row, optional leading ID
column), .fvecs (float32 records) or .bvecs (8-bit pixel records).

Output is CSV unless --out ends in .fvecs. With --unit every coordinate
vector is scaled to unit length, so dot products are cosine similarities.

Examples:
  facerec project --train faces.csv --rank 20
  facerec project --train train.bvecs --query probe.bvecs --out features.csv
  facerec project --train train.bvecs --limit 500 --unit --out features.fvecs`,
	Args: cobra.NoArgs,
	RunE: runProject,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.Flags().String("train", "", "Training dataset (required)")
	projectCmd.Flags().String("query", "", "Faces to project (default: the training set)")
	projectCmd.Flags().Int("rank", 0, "Components to keep, 0 for full rank (default: model.rank from config)")
	projectCmd.Flags().String("out", "", "Output file, .csv or .fvecs (default: CSV on stdout)")
	projectCmd.Flags().Bool("ids", true, "Prefix each output row with the face ID (CSV only)")
	projectCmd.Flags().Int("limit", 0, "Fit on at most this many training faces, 0 for all")
	projectCmd.Flags().Bool("unit", false, "Scale each coordinate vector to unit length")
	_ = projectCmd.MarkFlagRequired("train")
}

func runProject(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rank := cfg.Model.Rank
	if cmd.Flags().Changed("rank") {
		rank = mustGetInt(cmd, "rank")
	}
	model, err := facemodel.New(facemodel.RankFromInt(rank))
	if err != nil {
		return err
	}

	train, err := dataset.Load(mustGetString(cmd, "train"))
	if err != nil {
		return err
	}
	if limit := mustGetInt(cmd, "limit"); limit < 0 {
		return fmt.Errorf("--limit must be >= 0, got %d", limit)
	} else if limit > 0 {
		train = train.Subset(limit)
	}
	dims, samples := train.Dims()
	log.Printf("facerec: loaded %d training faces of %d dims from %s", samples, dims, train.Name)

	if err := model.Fit(train.Faces); err != nil {
		return err
	}

	query := train
	if path := mustGetString(cmd, "query"); path != "" {
		if query, err = dataset.Load(path); err != nil {
			return err
		}
	}

	coords, err := model.Transform(query.Faces)
	if err != nil {
		return fmt.Errorf("failed to project %s: %w", query.Name, err)
	}

	total, _ := model.TotalVarianceExplained()
	mse, err := model.ReconstructionError(query.Faces)
	if err != nil {
		return err
	}
	_, n := coords.Dims()
	log.Printf("facerec: projected %d faces onto %d components (%s): %.2f%% variance explained, reconstruction MSE %.6g",
		n, model.NumComponents(), model.Rank(), total*100, mse)

	if mustGetBool(cmd, "unit") {
		for j := 0; j < n; j++ {
			coords.SetCol(j, facemodel.NormalizeTransformed(mat.Col(nil, j, coords)))
		}
	}
	features := &dataset.Dataset{Name: query.Name, IDs: query.IDs, Faces: coords}

	var out io.Writer = cmd.OutOrStdout()
	path := mustGetString(cmd, "out")
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if strings.EqualFold(filepath.Ext(path), ".fvecs") {
		return dataset.WriteFvecs(out, features.Rows())
	}
	var ids []string
	if mustGetBool(cmd, "ids") {
		ids = features.IDs
	}
	return dataset.WriteCSV(out, ids, features.Faces)
}
