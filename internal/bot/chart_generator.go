package bot

import (
	"fmt"

	"github.com/go-analyze/charts"
	"gitlab.com/mkovalev/budget-bot/internal/repository"
)

// GenerateCategoryChart creates a pie chart of per-category spending.
// Returns PNG image as bytes.
func GenerateCategoryChart(summary []repository.CategoryTotal, period string) ([]byte, error) {
	if len(summary) == 0 {
		return nil, fmt.Errorf("no expenses to chart")
	}

	values := make([]float64, 0, len(summary))
	names := make([]string, 0, len(summary))
	for _, row := range summary {
		names = append(names, row.CategoryName)
		values = append(values, row.Total.InexactFloat64())
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: fmt.Sprintf("Расходы по категориям — %s", period),
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}
