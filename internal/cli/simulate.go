package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulatePrice float64
	simulateLower float64
	simulateUpper float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次越界价格并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 || simulateUpper <= 0 {
			return errors.New("--price 与 --upper 必须大于 0")
		}

		price := decimal.NewFromFloat(simulatePrice)
		lower := decimal.NewFromFloat(simulateLower)
		upper := decimal.NewFromFloat(simulateUpper)
		return getApp().SimulateAlert(cmd.Context(), price, lower, upper)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "模拟观测到的价格")
	simulateCmd.Flags().Float64Var(&simulateLower, "lower", 0, "下限")
	simulateCmd.Flags().Float64Var(&simulateUpper, "upper", 0, "上限")
}
