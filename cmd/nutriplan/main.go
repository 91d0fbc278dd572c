package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nutriplan/nutriplan/internal/clinical"
	"github.com/nutriplan/nutriplan/internal/config"
	"github.com/nutriplan/nutriplan/internal/domain/integrity"
	"github.com/nutriplan/nutriplan/internal/nutrition"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "nutriplan",
		Short:        "Nutrition practice API server and tools",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("migrations", "./migrations", "Path to the migrations root (one subdirectory per driver)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(deriveCmd())
	rootCmd.AddCommand(integrityCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("migrations")
			return runServer(dir)
		},
	}
}

// withStore loads the configuration and opens the configured store for a
// one-shot command.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, st *store) error) error {
	dir, _ := cmd.Flags().GetString("migrations")
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStore(ctx, cfg, dir, newLogger())
	if err != nil {
		return err
	}
	defer st.close()
	return fn(ctx, cfg, st)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Running %s migrations\n", st.driver)
				count, err := st.migrator.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(out, "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store) error {
				statuses, err := st.migrator.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Migration status (%s)\n", st.driver)
				fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	return cmd
}

func deriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a nutritional target from a clinical record (JSON)",
		Long: "Reads a clinical record from --file (or stdin with '-') and prints the derived\n" +
			"daily calories, macro split, grams, micronutrients, water and notes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			preset, _ := cmd.Flags().GetString("preset")
			calories, _ := cmd.Flags().GetInt("calories")
			format, _ := cmd.Flags().GetString("format")
			rulesFile, _ := cmd.Flags().GetString("rules")

			if format != "json" && format != "text" {
				return fmt.Errorf("--format must be json or text, got %q", format)
			}
			if calories < 0 {
				return fmt.Errorf("--calories must not be negative")
			}

			raw, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			snapshot, err := clinical.Parse(raw)
			if err != nil {
				return err
			}

			rules := nutrition.DefaultRules()
			if rulesFile != "" {
				if rules, err = config.LoadRules(rulesFile); err != nil {
					return err
				}
			}
			deriver := nutrition.NewDeriver(rules)
			if preset != "" {
				if _, ok := deriver.Preset(preset); !ok {
					return fmt.Errorf("unknown preset %q", preset)
				}
			}

			target := deriver.Derive(snapshot, nutrition.Options{Preset: preset, Calories: calories})
			if format == "text" {
				return writeTargetText(cmd.OutOrStdout(), target)
			}
			return writeJSON(cmd.OutOrStdout(), target)
		},
	}
	cmd.Flags().String("file", "-", "Clinical record JSON file, '-' for stdin")
	cmd.Flags().String("preset", "", "Named macro distribution to use instead of the recommended one")
	cmd.Flags().Int("calories", 0, "Override the estimated daily calories")
	cmd.Flags().String("format", "json", "Output format: json or text")
	cmd.Flags().String("rules", os.Getenv("NUTRITION_RULES_FILE"), "Nutrition rules file (YAML, JSON or TOML)")
	return cmd
}

func integrityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Scan and repair stored patients and diet plans",
	}

	run := func(cmd *cobra.Command, repair bool) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		format, _ := cmd.Flags().GetString("format")
		return withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store) error {
			rules, err := cfg.NutritionRules()
			if err != nil {
				return err
			}
			checker := integrity.NewChecker(st.patients, st.plans, nutrition.NewDeriver(rules), st.tx, newLogger())

			var report *integrity.Report
			if repair {
				report, err = checker.Repair(ctx, dryRun)
			} else {
				report, err = checker.Scan(ctx)
			}
			if err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return writeReportText(cmd.OutOrStdout(), report)
		})
	}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Report inconsistencies without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false)
		},
	}
	scanCmd.Flags().String("format", "text", "Output format: json or text")
	cmd.AddCommand(scanCmd)

	repairCmd := &cobra.Command{
		Use:   "repair",
		Short: "Fix every inconsistency found",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, true)
		},
	}
	repairCmd.Flags().Bool("dry-run", false, "Compute the fixes without writing them")
	repairCmd.Flags().String("format", "text", "Output format: json or text")
	cmd.AddCommand(repairCmd)

	return cmd
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read clinical record: %w", err)
	}
	return raw, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTargetText(w io.Writer, t nutrition.Target) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Calories:       %d kcal/day", t.DailyCalories)
	if t.DefaultCalories {
		b.WriteString(" (default, weight or height missing or unusable)")
	}
	b.WriteString("\n")
	if t.BMR > 0 {
		fmt.Fprintf(&b, "BMR / TDEE:     %.0f / %d kcal\n", t.BMR, t.TDEE)
	}
	if t.ActivityLevel != "" {
		fmt.Fprintf(&b, "Activity:       %s\n", t.ActivityLevel)
	}
	if len(t.Conditions) > 0 {
		names := make([]string, len(t.Conditions))
		for i, c := range t.Conditions {
			names[i] = string(c)
		}
		fmt.Fprintf(&b, "Conditions:     %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "Distribution:   %s", t.Distribution)
	if t.Preset != "" {
		fmt.Fprintf(&b, " (%s)", t.Preset)
	}
	b.WriteString("\n")
	g := t.MacroGramsPerDay
	fmt.Fprintf(&b, "Grams/day:      protein %d g, carbohydrates %d g, fats %d g\n", g.Protein, g.Carbohydrates, g.Fats)
	m := t.Micronutrients
	fmt.Fprintf(&b, "Micronutrients: fiber %d g, sodium %d mg, sugar %d g, calcium %d mg, iron %d mg, vitamin C %d mg, vitamin D %d IU\n",
		m.Fiber, m.Sodium, m.Sugar, m.Calcium, m.Iron, m.VitaminC, m.VitaminD)
	fmt.Fprintf(&b, "Water:          %d glasses/day\n", t.WaterGlassesPerDay)
	fmt.Fprintf(&b, "Description:    %s\n", t.Description)
	if t.Notes != "" {
		fmt.Fprintf(&b, "Notes:          %s\n", t.Notes)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeReportText(w io.Writer, r *integrity.Report) error {
	mode := "scan"
	switch {
	case r.Repair && r.DryRun:
		mode = "repair (dry run)"
	case r.Repair:
		mode = "repair"
	}
	fmt.Fprintf(w, "Integrity %s: %d patient(s), %d plan(s), %d issue(s), %d fixed\n",
		mode, r.PatientsScanned, r.PlansScanned, len(r.Issues), r.Fixed)
	if len(r.Issues) == 0 {
		return nil
	}
	fmt.Fprintf(w, "%-18s %-8s %-36s %-5s %s\n", "KIND", "ENTITY", "ID", "FIXED", "DETAIL")
	for _, is := range r.Issues {
		fixed := "no"
		if is.Fixed {
			fixed = "yes"
		}
		if _, err := fmt.Fprintf(w, "%-18s %-8s %-36s %-5s %s\n", is.Kind, is.Entity, is.ID, fixed, is.Detail); err != nil {
			return err
		}
	}
	return nil
}
