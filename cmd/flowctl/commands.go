package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/ai"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/config"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/datauri"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
)

// newRootCmd собирает CLI для прямого вызова флоу.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "flowctl",
		Short:         "Invoke the credit, bill and literacy flows from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Log flow traces to stderr")
	rootCmd.PersistentFlags().StringP("output", "o", "json", "Output format: json or yaml")

	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newParseBillCmd())
	rootCmd.AddCommand(newAskCmd())

	return rootCmd
}

func newScoreCmd() *cobra.Command {
	var (
		input   string
		request flows.CreditScoreRequest
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an applicant",
		Long: `Score an applicant from flags or from a JSON request.
Example: flowctl score --age 34 --location Pune --occupation tailor --income 30000 --history "no defaults" --loan 50000
         flowctl score --input request.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := newFlowSet(cmd)
			if err != nil {
				return err
			}

			if input != "" {
				raw, err := readInput(cmd, input)
				if err != nil {
					return err
				}
				result, err := set.CreditScoring.InvokeRaw(cmd.Context(), raw)
				if err != nil {
					return err
				}
				return printResult(cmd, result)
			}

			result, err := set.CreditScoring.Invoke(cmd.Context(), request)
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "JSON request file, - for stdin")
	cmd.Flags().IntVar(&request.PersonalInfo.Age, "age", 0, "Applicant age")
	cmd.Flags().StringVar(&request.PersonalInfo.Location, "location", "", "Applicant location")
	cmd.Flags().StringVar(&request.PersonalInfo.Occupation, "occupation", "", "Applicant occupation")
	cmd.Flags().Float64Var(&request.FinancialInfo.Income, "income", 0, "Monthly income")
	cmd.Flags().StringVar(&request.FinancialInfo.CreditHistory, "history", "", "Credit history summary")
	cmd.Flags().Float64Var(&request.FinancialInfo.LoanAmount, "loan", 0, "Requested loan amount")

	return cmd
}

func newParseBillCmd() *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "parse-bill FILE",
		Short: "Extract bill fields from an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read bill: %w", err)
			}

			mimeType, err := datauri.CheckUpload(int64(len(data)), limit, data)
			if err != nil {
				return err
			}

			set, err := newFlowSet(cmd)
			if err != nil {
				return err
			}

			result, err := set.BillParsing.Invoke(cmd.Context(), flows.BillParseRequest{
				PhotoDataURI: datauri.Encode(mimeType, data),
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}

	cmd.Flags().Int64Var(&limit, "max-bytes", datauri.MaxImageBytes, "Largest accepted image")

	return cmd
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask the financial literacy assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := newFlowSet(cmd)
			if err != nil {
				return err
			}

			answer, err := set.FinancialLiteracy.Invoke(cmd.Context(), flows.LiteracyQuestion{
				Question: strings.Join(args, " "),
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), answer.Answer)
			return err
		},
	}
}

func newFlowSet(cmd *cobra.Command) (*flows.Set, error) {
	cfg, err := config.LoadAI()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return flows.NewSet(client, flows.Options{
		Provider: cfg.Provider,
		Logger:   logger,
	}), nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// printResult печатает результат флоу в формате из флага --output.
func printResult(cmd *cobra.Command, v any) error {
	flag := cmd.Flag("output")
	if flag == nil {
		return errors.New("output flag is not defined")
	}
	format := flag.Value.String()
	w := cmd.OutOrStdout()

	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		// через JSON, чтобы сохранить имена полей из json-тегов
		payload, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(payload, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
