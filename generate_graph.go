//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/bot"
	"gitlab.com/mkovalev/budget-bot/internal/repository"
)

func main() {
	summary := []repository.CategoryTotal{
		{CategoryName: "Продукты", Total: decimal.NewFromInt(15050)},
		{CategoryName: "Кафе", Total: decimal.NewFromInt(8300)},
		{CategoryName: "Транспорт", Total: decimal.NewFromInt(4200)},
		{CategoryName: "Развлечения", Total: decimal.NewFromInt(2500)},
		{CategoryName: "Прочее", Total: decimal.NewFromInt(1900)},
	}

	chartData, err := bot.GenerateCategoryChart(summary, "08.2026")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Created graph.png - Example category breakdown chart")
}
