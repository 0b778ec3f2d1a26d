package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/models"
	"povertyline/internal/policy"
	"povertyline/internal/repository"
)

const exportPageSize = 1000

// ExportResult carries one export in either representation. JSON is set for
// format "json", Workbook for format "xlsx".
type ExportResult struct {
	Filename string
	JSON     map[string]any
	Workbook []byte
}

// ExportService produces admin data exports.
type ExportService interface {
	ExportUsers(ctx context.Context, actor policy.Actor, format string) (*ExportResult, error)
	ExportResources(ctx context.Context, actor policy.Actor, format string) (*ExportResult, error)
}

type exportService struct {
	usersRepo     repository.UsersRepository
	resourcesRepo repository.ResourcesRepository
	logger        *zap.Logger
}

func NewExportService(usersRepo repository.UsersRepository, resourcesRepo repository.ResourcesRepository, logger *zap.Logger) ExportService {
	return &exportService{usersRepo: usersRepo, resourcesRepo: resourcesRepo, logger: logger}
}

var userExportColumns = []exportColumn{
	{Header: "ID", Key: "id", Width: 38},
	{Header: "Username", Key: "username", Width: 20},
	{Header: "Email", Key: "email", Width: 28},
	{Header: "Role", Key: "role", Width: 12},
	{Header: "Verification Status", Key: "verification_status", Width: 18},
	{Header: "Active", Key: "is_active", Width: 10},
	{Header: "Created At", Key: "created_at", Width: 22},
}

var resourceExportColumns = []exportColumn{
	{Header: "ID", Key: "id", Width: 38},
	{Header: "Title", Key: "title", Width: 30},
	{Header: "Category", Key: "category", Width: 15},
	{Header: "Status", Key: "status", Width: 12},
	{Header: "Provider Name", Key: "provider_name", Width: 24},
	{Header: "Location", Key: "location", Width: 24},
	{Header: "Capacity", Key: "capacity", Width: 10},
	{Header: "Start Date", Key: "start_date", Width: 14},
	{Header: "End Date", Key: "end_date", Width: 14},
	{Header: "Created At", Key: "created_at", Width: 22},
}

func (s *exportService) ExportUsers(ctx context.Context, actor policy.Actor, format string) (*ExportResult, error) {
	if d := policy.CanManageUsers(actor); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}

	var rows []map[string]any
	page := models.PageParams{Page: 1, PerPage: exportPageSize}
	for {
		users, total, err := s.usersRepo.List(ctx, repository.UserFilters{}, page)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			rows = append(rows, u.ToJSON())
		}
		if len(rows) >= total || len(users) == 0 {
			break
		}
		page.Page++
	}

	s.logger.Info("Exporting users",
		zap.String("format", format),
		zap.Int("count", len(rows)),
	)
	return buildExport("users", format, userExportColumns, rows)
}

func (s *exportService) ExportResources(ctx context.Context, actor policy.Actor, format string) (*ExportResult, error) {
	if d := policy.CanManageUsers(actor); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}

	var rows []map[string]any
	page := models.PageParams{Page: 1, PerPage: exportPageSize}
	for {
		resources, total, err := s.resourcesRepo.List(ctx, repository.ResourceFilters{}, page)
		if err != nil {
			return nil, err
		}
		for _, r := range resources {
			rows = append(rows, r.ToJSON())
		}
		if len(rows) >= total || len(resources) == 0 {
			break
		}
		page.Page++
	}

	s.logger.Info("Exporting resources",
		zap.String("format", format),
		zap.Int("count", len(rows)),
	)
	return buildExport("resources", format, resourceExportColumns, rows)
}

func buildExport(name, format string, columns []exportColumn, rows []map[string]any) (*ExportResult, error) {
	now := time.Now().UTC()
	switch format {
	case "", "json":
		return &ExportResult{
			Filename: fmt.Sprintf("%s_export_%s.json", name, now.Format("20060102_150405")),
			JSON: map[string]any{
				"data":      rows,
				"count":     len(rows),
				"timestamp": now.Format(time.RFC3339),
			},
		}, nil
	case "xlsx":
		workbook, err := generateWorkbook(name, columns, rows)
		if err != nil {
			return nil, apperr.New(apperr.CodeInternal, "Failed to generate export")
		}
		return &ExportResult{
			Filename: fmt.Sprintf("%s_export_%s.xlsx", name, now.Format("20060102_150405")),
			Workbook: workbook,
		}, nil
	default:
		return nil, apperr.Invalid("Invalid export format")
	}
}

type exportColumn struct {
	Header string
	Key    string
	Width  float64
}

// generateWorkbook renders the rows as a single styled sheet with a frozen
// header row.
func generateWorkbook(sheetName string, columns []exportColumn, rows []map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	// Keep the file open until WriteTo finishes.

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, col.Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if col.Width > 0 {
			if err := f.SetColWidth(sheetName, name, name, col.Width); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for rowIdx, item := range rows {
		row := rowIdx + 2
		for colIdx, col := range columns {
			value := exportCellValue(item[col.Key])
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func exportCellValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
