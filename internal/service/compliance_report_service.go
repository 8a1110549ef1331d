package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/cresciperdi/intranet-api/internal/service/compliance"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Форматы экспорта подписей
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
)

// PendingUser - пользователь аудитории без подписи
type PendingUser struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

// ContentSummary - сводка по прохождению контента
type ContentSummary struct {
	ContentID      uuid.UUID     `json:"content_id"`
	Title          string        `json:"title"`
	TargetAudience string        `json:"target_audience"`
	Active         bool          `json:"active"`
	AudienceSize   int           `json:"audience_size"`
	Signed         int           `json:"signed"`
	Pending        int           `json:"pending"`
	CompletionRate float64       `json:"completion_rate"`
	PendingUsers   []PendingUser `json:"pending_users"`
}

// SignatureListResponse - страница подписей
type SignatureListResponse struct {
	Signatures []entity.MandatoryContentSignature `json:"signatures"`
	Total      int64                              `json:"total"`
	Page       int                                `json:"page"`
	PerPage    int                                `json:"per_page"`
}

// ExportFile - сформированный файл экспорта
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ComplianceReportService - отчёты по подписям для админки
type ComplianceReportService struct {
	contentRepo   repository.MandatoryContentRepository
	signatureRepo repository.SignatureRepository
	profileRepo   repository.ProfileRepository
}

// NewComplianceReportService создает сервис отчётов
func NewComplianceReportService(
	contentRepo repository.MandatoryContentRepository,
	signatureRepo repository.SignatureRepository,
	profileRepo repository.ProfileRepository,
) *ComplianceReportService {
	return &ComplianceReportService{
		contentRepo:   contentRepo,
		signatureRepo: signatureRepo,
		profileRepo:   profileRepo,
	}
}

// Summary считает размер аудитории, подписавших и ожидающих подписи.
// Подписи пользователей вне текущей аудитории в сводку не входят.
func (s *ComplianceReportService) Summary(ctx context.Context, contentID uuid.UUID) (*ContentSummary, error) {
	content, err := s.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}

	profiles, err := s.profileRepo.ListActiveByAudience(ctx, content.TargetAudience)
	if err != nil {
		return nil, err
	}
	signedIDs, err := s.signatureRepo.ListSignedUserIDs(ctx, contentID)
	if err != nil {
		return nil, err
	}

	signed := make(map[uuid.UUID]struct{}, len(signedIDs))
	for _, id := range signedIDs {
		signed[id] = struct{}{}
	}

	summary := &ContentSummary{
		ContentID:      content.ID,
		Title:          content.Title,
		TargetAudience: content.TargetAudience,
		Active:         content.Active,
		AudienceSize:   len(profiles),
		PendingUsers:   []PendingUser{},
	}
	for _, p := range profiles {
		if _, ok := signed[p.ID]; ok {
			summary.Signed++
			continue
		}
		summary.PendingUsers = append(summary.PendingUsers, PendingUser{
			ID:       p.ID,
			FullName: p.FullName,
			Email:    p.Email,
			Role:     p.Role,
		})
	}
	summary.Pending = len(summary.PendingUsers)
	if summary.AudienceSize > 0 {
		rate := float64(summary.Signed) / float64(summary.AudienceSize) * 100
		summary.CompletionRate = math.Round(rate*10) / 10
	}
	return summary, nil
}

// Signatures возвращает подписи контента постранично
func (s *ComplianceReportService) Signatures(ctx context.Context, contentID uuid.UUID, page, pageSize int) (*SignatureListResponse, error) {
	if _, err := s.contentRepo.GetByID(ctx, contentID); err != nil {
		return nil, err
	}
	page, pageSize, offset := normalizePagination(page, pageSize)

	signatures, total, err := s.signatureRepo.ListByContent(ctx, contentID, pageSize, offset)
	if err != nil {
		log.Printf("[ComplianceReportService] Ошибка получения подписей контента %s: %v", contentID, err)
		return nil, err
	}
	if signatures == nil {
		signatures = []entity.MandatoryContentSignature{}
	}
	return &SignatureListResponse{Signatures: signatures, Total: total, Page: page, PerPage: pageSize}, nil
}

// Export формирует файл со всеми подписями контента
func (s *ComplianceReportService) Export(ctx context.Context, contentID uuid.UUID, format string) (*ExportFile, error) {
	if format != ExportFormatCSV && format != ExportFormatXLSX {
		return nil, fmt.Errorf("%w: format must be csv or xlsx", apperrors.ErrValidation)
	}

	content, err := s.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	signatures, err := s.signatureRepo.ListAllByContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("assinaturas_%s_%s", slugify(content.Title), time.Now().Format("20060102"))
	rows := signatureRows(signatures)

	if format == ExportFormatCSV {
		data, err := buildCSV(rows)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Filename: filename + ".csv", ContentType: "text/csv; charset=utf-8", Data: data}, nil
	}

	data, err := buildXLSX(rows)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		Filename:    filename + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
	}, nil
}

var exportHeaders = []string{"Nome", "E-mail", "Perfil", "Pontuação", "Texto de ciência", "IP", "Data", "Hash de evidência", "Íntegro"}

func signatureRows(signatures []entity.MandatoryContentSignature) [][]string {
	rows := make([][]string, 0, len(signatures))
	for i := range signatures {
		sig := &signatures[i]
		name, email, role := "", "", ""
		if sig.Profile != nil {
			name, email, role = sig.Profile.FullName, sig.Profile.Email, sig.Profile.Role
		}
		intact := "Não"
		if compliance.VerifyEvidence(sig) {
			intact = "Sim"
		}
		rows = append(rows, []string{
			sanitizeForExcel(name),
			sanitizeForExcel(email),
			role,
			strconv.Itoa(sig.Score),
			sig.ConfirmationText,
			sig.IPAddress,
			sig.CreatedAt.Format("02/01/2006 15:04:05"),
			sig.EvidenceHash,
			intact,
		})
	}
	return rows
}

func buildCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	// BOM для корректного открытия UTF-8 в Excel
	buf.WriteString("\xEF\xBB\xBF")

	writer := csv.NewWriter(&buf)
	writer.Comma = ';'
	if err := writer.Write(exportHeaders); err != nil {
		return nil, err
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildXLSX использует StreamWriter, чтобы не держать всю книгу в памяти
func buildXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Assinaturas"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return nil, err
	}

	for i, r := range rows {
		row := make([]interface{}, len(r))
		for j, v := range r {
			row[j] = v
		}
		// pontuação как число
		if score, err := strconv.Atoi(r[3]); err == nil {
			row[3] = score
		}
		if err := sw.SetRow(fmt.Sprintf("A%d", i+2), row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// slugify убирает диакритику ("Código" -> "codigo") и оставляет латиницу, цифры и дефисы
func slugify(s string) string {
	if folded, _, err := transform.String(accentFolder(), s); err == nil {
		s = folded
	}

	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "conteudo"
	}
	if len(out) > 40 {
		out = strings.TrimRight(out[:40], "-")
	}
	return out
}

func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
