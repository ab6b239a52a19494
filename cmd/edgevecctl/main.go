// Command edgevecctl inspects and validates EdgeVec snapshot files
// offline, without embedding the engine into a host application: a
// cobra root command, persistent flags for shared inputs, and RunE
// handlers that open state, do one thing, and print either plain text
// or JSON.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/snapshot"
)

var (
	snapshotPath string
	asJSON       bool
)

var rootCmd = &cobra.Command{
	Use:   "edgevecctl",
	Short: "Inspect and validate EdgeVec snapshot files",
	Long:  `A command-line tool for offline inspection of EdgeVec's versioned snapshot format.`,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Decode a snapshot and print a summary of its contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}

		out, err := snapshot.Decode(data)
		if err != nil {
			return fmt.Errorf("failed to decode snapshot: %w", err)
		}

		summary := buildSummary(out)
		if asJSON {
			enc, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal summary: %w", err)
			}
			fmt.Println(string(enc))
			return nil
		}

		fmt.Printf("dimensions:    %d\n", summary.Dimensions)
		fmt.Printf("metric:        %s\n", summary.Metric)
		fmt.Printf("live vectors:  %d\n", summary.LiveVectors)
		fmt.Printf("deleted:       %d\n", summary.DeletedVectors)
		fmt.Printf("has bq:        %t\n", summary.HasBQ)
		fmt.Printf("has metadata:  %t\n", summary.HasMetadata)
		fmt.Printf("has sparse:    %t\n", summary.HasSparse)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Decode a snapshot and report whether it is well-formed",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}

		_, err = snapshot.Decode(data)
		if err != nil {
			if asJSON {
				result := map[string]any{"valid": false, "error": err.Error()}
				var appErr *apperr.Error
				if errors.As(err, &appErr) {
					result["kind"] = appErr.Kind.String()
				}
				enc, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(enc))
				return nil
			}
			fmt.Printf("invalid: %v\n", err)
			return nil
		}

		if asJSON {
			enc, _ := json.MarshalIndent(map[string]any{"valid": true}, "", "  ")
			fmt.Println(string(enc))
			return nil
		}
		fmt.Println("valid")
		return nil
	},
}

// summary is the JSON/plain-text shape inspect prints, deliberately not
// reusing snapshot.Output directly since that type holds live,
// potentially large in-memory structures rather than a report.
type summary struct {
	Dimensions     int    `json:"dimensions"`
	Metric         string `json:"metric"`
	LiveVectors    int    `json:"live_vectors"`
	DeletedVectors int    `json:"deleted_vectors"`
	HasBQ          bool   `json:"has_bq"`
	HasMetadata    bool   `json:"has_metadata"`
	HasSparse      bool   `json:"has_sparse"`
}

func buildSummary(out *snapshot.Output) summary {
	s := summary{
		Dimensions: out.Dimensions,
		Metric:     out.Metric.String(),
		HasBQ:      out.BQ != nil,
		HasMetadata: out.Metadata != nil,
		HasSparse:  out.Sparse != nil,
	}
	if out.Dense != nil {
		s.LiveVectors = out.Dense.LiveCount()
		s.DeletedVectors = out.Dense.DeletedCount()
	}
	return s
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&snapshotPath, "file", "f", "", "path to a snapshot file")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "output as JSON")
	rootCmd.MarkPersistentFlagRequired("file")

	rootCmd.AddCommand(inspectCmd, validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
