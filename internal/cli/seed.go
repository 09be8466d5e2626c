package cli

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"dashboard/internal/dataset"
	"dashboard/internal/models"

	"github.com/spf13/cobra"
)

func (c *CLI) newSeedCmd() *cobra.Command {
	var (
		out  string
		rows int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write sample discarded and ranked result files",
		Long: `Writes deterministic sample result spreadsheets so the dashboard can be run
without the production inference artifacts. File names follow the results config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			discarded, ranked, err := Seed(out,
				filepath.Base(c.cfg.Results.DiscardedPath),
				filepath.Base(c.cfg.Results.RankedPath),
				c.cfg.Results.RiskColumn,
				rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\nwrote %s\n", discarded, ranked)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", ".", "output directory")
	cmd.Flags().IntVar(&rows, "rows", 200, "number of ranked records")
	return cmd
}

var discardReasons = []string{
	"Idade fora da faixa",
	"NEUTRÓFILOS ausente",
	"Registro duplicado",
}

// Seed writes sample discarded and ranked spreadsheets into dir and returns their paths.
// The same arguments always produce the same contents.
func Seed(dir, discardedName, rankedName, riskColumn string, rows int) (string, string, error) {
	if rows < 1 {
		return "", "", fmt.Errorf("rows must be positive, got %d", rows)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	rng := rand.New(rand.NewPCG(1955, 1952))

	type record struct {
		id     int
		values []string
		score  float64
	}
	records := make([]record, 0, rows)
	for i := 1; i <= rows; i++ {
		score := rng.Float64()
		records = append(records, record{
			id: i,
			values: []string{
				strconv.Itoa(40 + rng.IntN(50)),
				strconv.FormatFloat(1.5+rng.Float64()*6, 'f', 2, 64),
				strconv.FormatFloat(3.8+rng.Float64()*2, 'f', 2, 64),
				strconv.FormatFloat(1+rng.Float64()*3, 'f', 2, 64),
			},
			score: score,
		})
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].score > records[j].score })

	ranked := &dataset.Table{
		Columns: []string{"ID", "IDADE", "NEUTRÓFILOS", "ERITRÓCITOS", "LINFÓCITOS", "SCORE", riskColumn},
	}
	for _, r := range records {
		row := append([]string{strconv.Itoa(r.id)}, r.values...)
		row = append(row, strconv.FormatFloat(r.score, 'f', 4, 64), riskFor(r.score))
		ranked.Rows = append(ranked.Rows, row)
	}

	discarded := &dataset.Table{Columns: []string{"ID", "IDADE", "MOTIVO"}}
	for i, reason := range discardReasons {
		discarded.Rows = append(discarded.Rows, []string{
			strconv.Itoa(rows + i + 1),
			strconv.Itoa(20 + rng.IntN(80)),
			reason,
		})
	}

	discardedPath := filepath.Join(dir, discardedName)
	if err := writeTable(discardedPath, discarded); err != nil {
		return "", "", err
	}
	rankedPath := filepath.Join(dir, rankedName)
	if err := writeTable(rankedPath, ranked); err != nil {
		return "", "", err
	}
	return discardedPath, rankedPath, nil
}

func riskFor(score float64) string {
	switch {
	case score >= 0.85:
		return models.RiskHigh
	case score >= 0.6:
		return models.RiskModerate
	case score >= 0.2:
		return models.RiskTypical
	default:
		return models.RiskLow
	}
}

func writeTable(path string, t *dataset.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := dataset.WriteXLSX(f, t); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
