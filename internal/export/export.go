package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/adeavid/degenie/internal/store"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format     ExportFormat
	StartTime  time.Time
	EndTime    time.Time
	MintFilter string // Filter by curve mint
	SideFilter string // Filter by side (buy/sell)
	OutputDir  string
}

// TradeExporter turns the trade history into analyst-friendly files.
// Lamport amounts are rendered in SOL with decimal arithmetic so no
// precision is lost to float formatting.
type TradeExporter struct {
	logger *zap.Logger
}

func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger,
	}
}

var lamportsPerSOL = decimal.NewFromInt(1_000_000_000)

func lamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).DivRound(lamportsPerSOL, 9)
}

// ExportTrades exports trades based on the provided options
func (te *TradeExporter) ExportTrades(trades []store.TradeRecord, options ExportOptions) (string, error) {
	filtered := te.filterTrades(trades, options)

	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	filename := te.generateFilename(options)
	outputPath := filepath.Join(options.OutputDir, filename)

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}

	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// filterTrades applies filters to the trade list
func (te *TradeExporter) filterTrades(trades []store.TradeRecord, options ExportOptions) []store.TradeRecord {
	var filtered []store.TradeRecord

	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && trade.Timestamp.After(options.EndTime) {
			continue
		}
		if options.MintFilter != "" && trade.Mint != options.MintFilter {
			continue
		}
		if options.SideFilter != "" && trade.Side != options.SideFilter {
			continue
		}

		filtered = append(filtered, trade)
	}

	return filtered
}

// generateFilename creates a filename based on export options
func (te *TradeExporter) generateFilename(options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")

	var prefix string
	if options.SideFilter != "" {
		prefix = fmt.Sprintf("trades_%s", options.SideFilter)
	} else {
		prefix = "trades_all"
	}

	if options.MintFilter != "" && len(options.MintFilter) >= 8 {
		prefix += "_" + options.MintFilter[:8]
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func csvHeaders() []string {
	return []string{"timestamp", "mint", "trader", "side", "amount_sol", "tokens", "price_sol", "fee_sol"}
}

func toCSVRow(trade store.TradeRecord) []string {
	return []string{
		trade.Timestamp.UTC().Format(time.RFC3339),
		trade.Mint,
		trade.Trader,
		trade.Side,
		lamportsToSOL(trade.Lamports).String(),
		fmt.Sprintf("%d", trade.Tokens),
		lamportsToSOL(trade.Price).String(),
		lamportsToSOL(trade.Fee).String(),
	}
}

// exportToCSV exports trades to CSV format
func (te *TradeExporter) exportToCSV(trades []store.TradeRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, trade := range trades {
		if err := writer.Write(toCSVRow(trade)); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}

	return nil
}

// exportToJSON exports trades to JSON format
func (te *TradeExporter) exportToJSON(trades []store.TradeRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time           `json:"export_time"`
		TradeCount int                 `json:"trade_count"`
		Trades     []store.TradeRecord `json:"trades"`
		Summary    ExportSummary       `json:"summary"`
	}{
		ExportTime: time.Now(),
		TradeCount: len(trades),
		Trades:     trades,
		Summary:    te.calculateSummary(trades),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// calculateSummary calculates summary statistics for the export
func (te *TradeExporter) calculateSummary(trades []store.TradeRecord) ExportSummary {
	summary := ExportSummary{
		TotalTrades: len(trades),
	}

	if len(trades) == 0 {
		return summary
	}

	summary.StartDate = trades[0].Timestamp
	summary.EndDate = trades[len(trades)-1].Timestamp

	mintSet := make(map[string]bool)
	var buyVolume, sellVolume, fees uint64

	for _, trade := range trades {
		mintSet[trade.Mint] = true
		fees += trade.Fee

		switch trade.Side {
		case "buy":
			summary.BuyCount++
			buyVolume += trade.Lamports
		case "sell":
			summary.SellCount++
			sellVolume += trade.Lamports
		}
	}

	summary.UniqueCurves = len(mintSet)
	summary.TotalBuyVolumeSOL = lamportsToSOL(buyVolume)
	summary.TotalSellVolumeSOL = lamportsToSOL(sellVolume)
	summary.TotalVolumeSOL = lamportsToSOL(buyVolume + sellVolume)
	summary.TotalFeesSOL = lamportsToSOL(fees)

	return summary
}

// ExportSummary contains summary statistics for exported trades
type ExportSummary struct {
	TotalTrades        int             `json:"total_trades"`
	BuyCount           int             `json:"buy_count"`
	SellCount          int             `json:"sell_count"`
	UniqueCurves       int             `json:"unique_curves"`
	TotalVolumeSOL     decimal.Decimal `json:"total_volume_sol"`
	TotalBuyVolumeSOL  decimal.Decimal `json:"total_buy_volume_sol"`
	TotalSellVolumeSOL decimal.Decimal `json:"total_sell_volume_sol"`
	TotalFeesSOL       decimal.Decimal `json:"total_fees_sol"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
}

// ExportDailyReport exports a daily summary report
func (te *TradeExporter) ExportDailyReport(trades []store.TradeRecord, date time.Time, outputDir string) (string, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	options := ExportOptions{
		Format:    FormatJSON,
		StartTime: startOfDay,
		EndTime:   endOfDay,
		OutputDir: outputDir,
	}

	filename := fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102"))
	outputPath := filepath.Join(outputDir, filename)

	filtered := te.filterTrades(trades, options)

	if len(filtered) == 0 {
		te.logger.Info("No trades for daily report",
			zap.Time("date", startOfDay))
		return "", nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	report := DailyReport{
		Date:            startOfDay,
		TradeCount:      len(filtered),
		Trades:          filtered,
		Summary:         te.calculateSummary(filtered),
		HourlyBreakdown: te.calculateHourlyBreakdown(filtered),
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	te.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("trades", len(filtered)))

	return outputPath, nil
}

// DailyReport represents a daily trading report
type DailyReport struct {
	Date            time.Time           `json:"date"`
	TradeCount      int                 `json:"trade_count"`
	Summary         ExportSummary       `json:"summary"`
	HourlyBreakdown []HourlyStats       `json:"hourly_breakdown"`
	Trades          []store.TradeRecord `json:"trades"`
}

// HourlyStats represents trading statistics for an hour
type HourlyStats struct {
	Hour       int             `json:"hour"`
	TradeCount int             `json:"trade_count"`
	BuyCount   int             `json:"buy_count"`
	SellCount  int             `json:"sell_count"`
	VolumeSOL  decimal.Decimal `json:"volume_sol"`
}

// calculateHourlyBreakdown calculates hourly trading statistics
func (te *TradeExporter) calculateHourlyBreakdown(trades []store.TradeRecord) []HourlyStats {
	hourlyMap := make(map[int]*HourlyStats)
	hourlyVolume := make(map[int]uint64)

	for _, trade := range trades {
		hour := trade.Timestamp.Hour()

		stats, exists := hourlyMap[hour]
		if !exists {
			stats = &HourlyStats{Hour: hour}
			hourlyMap[hour] = stats
		}

		stats.TradeCount++
		hourlyVolume[hour] += trade.Lamports

		switch trade.Side {
		case "buy":
			stats.BuyCount++
		case "sell":
			stats.SellCount++
		}
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, exists := hourlyMap[hour]; exists {
			stats.VolumeSOL = lamportsToSOL(hourlyVolume[hour])
			breakdown = append(breakdown, *stats)
		}
	}

	return breakdown
}
