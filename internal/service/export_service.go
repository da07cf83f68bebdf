package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ifsertao/permuta-api/internal/dto"
	"github.com/ifsertao/permuta-api/internal/models"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
	"github.com/ifsertao/permuta-api/pkg/export"
)

// ExportFormat selects the report renderer.
type ExportFormat string

const (
	FormatExcel ExportFormat = "xlsx"
	FormatPDF   ExportFormat = "pdf"
	FormatCSV   ExportFormat = "csv"
)

// ExportResult carries a rendered report ready to stream.
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService assembles swap request reports and per-swap receipts.
type ExportService struct {
	swaps       *SwapService
	excel       *export.ExcelExporter
	pdf         *export.PDFExporter
	csv         *export.CSVExporter
	logger      *zap.Logger
	institution string
}

// NewExportService constructs the service.
func NewExportService(swaps *SwapService, institution string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		swaps:       swaps,
		excel:       export.NewExcelExporter(),
		pdf:         export.NewPDFExporter(),
		csv:         export.NewCSVExporter(),
		logger:      logger,
		institution: institution,
	}
}

var swapReportHeaders = []string{
	"Solicitante", "Substituto", "Disciplina", "Turma",
	"Data da aula", "Motivo", "Status", "Solicitada em", "Reposição",
}

// SwapReport renders the full swap request list in the requested format.
// The caller's claims drive visibility the same way listing does.
func (s *ExportService) SwapReport(ctx context.Context, query dto.SwapQuery, format ExportFormat, actor *models.JWTClaims) (*ExportResult, error) {
	swaps, err := s.swaps.List(ctx, query, actor)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: swapReportHeaders, Rows: make([]map[string]string, 0, len(swaps))}
	for i := range swaps {
		dataset.Rows = append(dataset.Rows, swapReportRow(&swaps[i]))
	}

	switch format {
	case FormatExcel:
		content, err := s.excel.Render(dataset, "Permutas")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render spreadsheet")
		}
		return &ExportResult{
			FileName:    "permutas.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}, nil
	case FormatPDF:
		content, err := s.pdf.Render(dataset, "Relatório de Permutas")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report PDF")
		}
		return &ExportResult{FileName: "permutas.pdf", ContentType: "application/pdf", Content: content}, nil
	case FormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV")
		}
		return &ExportResult{FileName: "permutas.csv", ContentType: "text/csv", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown export format")
	}
}

// Receipt renders the PDF receipt for one swap request. Visible to the
// swap's participants and to coordinators.
func (s *ExportService) Receipt(ctx context.Context, swapID string, actor *models.JWTClaims) (*ExportResult, error) {
	swap, err := s.swaps.Get(ctx, swapID, actor)
	if err != nil {
		return nil, err
	}

	receipt := export.Receipt{
		Institution: s.institution,
		Title:       "Comprovante de Permuta",
		Reference:   swap.ID,
		Status:      statusLabel(swap.Status),
		Sections: []export.ReceiptSection{
			{
				Title: "Aula permutada",
				Fields: []export.ReceiptField{
					{Label: "Disciplina", Value: swap.DisciplineName},
					{Label: "Turma", Value: swap.ClassCode},
					{Label: "Dia da semana", Value: swap.SlotWeekday.Label()},
					{Label: "Horário", Value: fmt.Sprintf("%s - %s", swap.SlotStartTime, swap.SlotEndTime)},
					{Label: "Data da aula", Value: swap.ClassDate.Format(brDateLayout)},
				},
			},
			{
				Title: "Professores",
				Fields: []export.ReceiptField{
					{Label: "Solicitante", Value: swap.RequesterName},
					{Label: "Substituto", Value: swap.SubstituteName},
					{Label: "Motivo", Value: swap.Reason},
				},
			},
		},
		FooterNote: "Documento gerado automaticamente pelo sistema de permutas. Dispensa assinatura.",
	}

	if swap.HasMakeUp() {
		fields := []export.ReceiptField{
			{Label: "Data", Value: swap.MakeUp.Date.Format(brDateLayout)},
		}
		if swap.MakeUp.Note != "" {
			fields = append(fields, export.ReceiptField{Label: "Observação", Value: swap.MakeUp.Note})
		}
		receipt.Sections = append(receipt.Sections, export.ReceiptSection{Title: "Reposição", Fields: fields})
	}
	if swap.DecidedAt != nil {
		receipt.Sections = append(receipt.Sections, export.ReceiptSection{
			Title: "Decisão",
			Fields: []export.ReceiptField{
				{Label: "Situação", Value: statusLabel(swap.Status)},
				{Label: "Em", Value: swap.DecidedAt.Format(brDateLayout)},
			},
		})
	}

	content, err := export.RenderReceipt(receipt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return &ExportResult{
		FileName:    fmt.Sprintf("comprovante-%s.pdf", swap.ID),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

func swapReportRow(swap *models.SwapRequest) map[string]string {
	makeUp := ""
	if swap.HasMakeUp() {
		makeUp = swap.MakeUp.Date.Format(brDateLayout)
	}
	return map[string]string{
		"Solicitante":   swap.RequesterName,
		"Substituto":    swap.SubstituteName,
		"Disciplina":    swap.DisciplineName,
		"Turma":         swap.ClassCode,
		"Data da aula":  swap.ClassDate.Format(brDateLayout),
		"Motivo":        swap.Reason,
		"Status":        statusLabel(swap.Status),
		"Solicitada em": swap.RequestedAt.Format(brDateLayout),
		"Reposição":     makeUp,
	}
}

func statusLabel(status models.SwapStatus) string {
	switch status {
	case models.SwapStatusPending:
		return "Pendente"
	case models.SwapStatusApproved:
		return "Confirmada"
	case models.SwapStatusRefused:
		return "Recusada"
	case models.SwapStatusCancelled:
		return "Cancelada"
	default:
		return string(status)
	}
}
