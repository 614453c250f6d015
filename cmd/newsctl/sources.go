package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/repository"
	"github.com/noah-isme/newsroom-api/internal/service"
)

var flagSourcesFile string

var importSourcesCmd = &cobra.Command{
	Use:   "import-sources",
	Short: "Bulk load sources from a YAML file",
	Long: `Reads a YAML document of the form

  sources:
    - name: Go Blog
      url: https://go.dev/blog/feed.atom
      type: rss
      language: en
      category: tech

Urls already registered, or repeated in the file, are skipped and reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := loadSourceFile(flagSourcesFile)
		if err != nil {
			return err
		}

		env, err := openRuntime()
		if err != nil {
			return err
		}
		defer env.Close()

		svc := service.NewSourceService(repository.NewSourceRepository(env.db), nil, env.logger)
		result, err := svc.BulkImport(cmd.Context(), req)
		if err != nil {
			return err
		}
		printImportResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	importSourcesCmd.Flags().StringVarP(&flagSourcesFile, "file", "f", "", "path to the sources YAML file")
	_ = importSourcesCmd.MarkFlagRequired("file")
}

func loadSourceFile(path string) (dto.BulkSourceRequest, error) {
	var req dto.BulkSourceRequest
	raw, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(req.Sources) == 0 {
		return req, fmt.Errorf("%s lists no sources", path)
	}
	return req, nil
}

func printImportResult(w io.Writer, result *dto.BulkSourceResult) {
	fmt.Fprintf(w, "Created %d source(s), skipped %d.\n", len(result.Created), len(result.Skipped))
	for _, skipped := range result.Skipped {
		fmt.Fprintf(w, "  skipped %s (%s)\n", skipped.URL, skipped.Reason)
	}
}
