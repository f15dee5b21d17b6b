package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/evaluator"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/ZanzyTHEbar/modelscore/internal/monitoring"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type options struct {
	modelPath string
	inputPath string
	horizon   int
	reporting bool
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "modelscore",
		Short:         "Validate and score predictive model documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(monitoring.NewLoggerWithWriter(cmd.ErrOrStderr(), level).Logger)
		},
	}

	root.PersistentFlags().StringVarP(&opts.modelPath, "model", "m", "", "model document (.json, .yaml or .yml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	_ = root.MarkPersistentFlagRequired("model")

	root.AddCommand(newValidateCmd(opts), newEvaluateCmd(opts), newForecastCmd(opts))
	return root
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that a model document decodes and builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(opts.modelPath, false)
			if err != nil {
				return err
			}

			doc := m.Document()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: valid %s model\n", opts.modelPath, doc.Kind)
			fmt.Fprintf(out, "  name:   %s\n", doc.Name)
			fmt.Fprintf(out, "  fields: %d\n", len(doc.DataFields))
			fmt.Fprintf(out, "  target: %s\n", m.TargetName())
			if len(doc.Output) > 0 {
				fmt.Fprintf(out, "  output: %d\n", len(doc.Output))
			}
			return nil
		},
	}
}

func newEvaluateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score one record or a list of records",
		Long: `Score the records in --input against the model and print the results as
JSON. The input holds one object or a list of objects keyed by field name;
use "-" to read it from stdin. A list stops at the first failing record.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(opts.modelPath, opts.reporting)
			if err != nil {
				return err
			}

			records, batch, err := readRecords(cmd.InOrStdin(), opts.inputPath)
			if err != nil {
				return err
			}

			preparer := field.NewPreparer(m.Document().DataFields)
			scored := make([]map[string]any, 0, len(records))
			for i, raw := range records {
				prepared, err := preparer.Prepare(raw)
				if err == nil {
					var results evaluator.Results
					if results, err = m.Evaluate(prepared); err == nil {
						scored = append(scored, evaluator.Flatten(results))
						continue
					}
				}
				if batch {
					return fmt.Errorf("record %d: %w", i, err)
				}
				return err
			}

			if batch {
				return writeJSON(cmd.OutOrStdout(), scored)
			}
			return writeJSON(cmd.OutOrStdout(), scored[0])
		},
	}

	cmd.Flags().StringVarP(&opts.inputPath, "input", "i", "", `input records (.json, .yaml, .yml or "-" for JSON on stdin)`)
	cmd.Flags().BoolVar(&opts.reporting, "report", false, "attach the computation report to each score")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newForecastCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project a time series model ahead",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(opts.modelPath, false)
			if err != nil {
				return err
			}

			forecast, err := m.Forecast(opts.horizon)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"model":    m.Document().Name,
				"horizon":  opts.horizon,
				"forecast": forecast,
			})
		},
	}

	cmd.Flags().IntVarP(&opts.horizon, "horizon", "n", 1, "number of steps to project")
	return cmd
}

func loadModel(path string, reporting bool) (*evaluator.Model, error) {
	doc, err := model.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return evaluator.New(doc, reporting)
}

// readRecords decodes one record or a list of records. batch reports
// whether the input was a list.
func readRecords(stdin io.Reader, path string) (records []map[string]any, batch bool, err error) {
	var data []byte
	format := model.FormatJSON
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
		format = model.FormatOf(path)
	}
	if err != nil {
		return nil, false, apperrors.WrapError(err, "failed to read input")
	}

	var decoded any
	if format == model.FormatYAML {
		err = yaml.Unmarshal(data, &decoded)
	} else {
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		err = decoder.Decode(&decoded)
	}
	if err != nil {
		return nil, false, apperrors.NewValidationError("invalid input", err.Error())
	}

	switch v := decoded.(type) {
	case map[string]any:
		return []map[string]any{v}, false, nil
	case []any:
		records = make([]map[string]any, 0, len(v))
		for i, item := range v {
			record, ok := item.(map[string]any)
			if !ok {
				return nil, true, apperrors.NewValidationError(fmt.Sprintf("record %d is not an object", i))
			}
			records = append(records, record)
		}
		if len(records) == 0 {
			return nil, true, apperrors.NewValidationError("input holds no records")
		}
		return records, true, nil
	default:
		return nil, false, apperrors.NewValidationError("input must be an object or a list of objects")
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
