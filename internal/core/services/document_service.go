package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"mooringhub/internal/adapters/persistence/models"
)

// DocumentService renders licence and summary documents to the document
// directory and returns their paths. It implements DocumentGenerator.
type DocumentService struct {
	outputDir string
	authority string
}

// NewDocumentService creates a new document service
func NewDocumentService(outputDir, authority string) *DocumentService {
	return &DocumentService{outputDir: outputDir, authority: authority}
}

var licenceTemplate = template.Must(template.New("licence").Parse(`{{.Authority}}

ENTITLEMENT {{.LodgementNumber}}
Kind: {{.Kind}}
Status: {{.Status}}
Holder: {{.Holder}}
{{if .StartDate}}Start date: {{.StartDate}}
{{end}}{{if .ExpiryDate}}Expiry date: {{.ExpiryDate}}
{{end}}Issued: {{.IssueDate}}
`))

var summaryTemplate = template.Must(template.New("summary").Parse(`{{.Authority}} - Entitlement Summary

{{.LodgementNumber}} ({{.Kind}}) - {{.Status}}
Holder: {{.Holder}}
Moorings: {{.MooringCount}}
Stickers: {{.StickerCount}}
`))

type documentContext struct {
	Authority       string
	LodgementNumber string
	Kind            string
	Status          string
	Holder          string
	StartDate       string
	ExpiryDate      string
	IssueDate       string
	MooringCount    int
	StickerCount    int
}

// GenerateLicenceDocument renders the licence document for an approval.
func (s *DocumentService) GenerateLicenceDocument(ctx context.Context, approval *models.Approval) (string, error) {
	name := fmt.Sprintf("%s_licence_%s.txt", approval.LodgementNumber, time.Now().Format("20060102150405"))
	return s.render(licenceTemplate, name, s.buildContext(approval))
}

// GenerateSummaryDocument renders the one-page summary for an approval.
func (s *DocumentService) GenerateSummaryDocument(ctx context.Context, approval *models.Approval) (string, error) {
	name := fmt.Sprintf("%s_summary_%s.txt", approval.LodgementNumber, time.Now().Format("20060102150405"))
	return s.render(summaryTemplate, name, s.buildContext(approval))
}

func (s *DocumentService) buildContext(approval *models.Approval) documentContext {
	docCtx := documentContext{
		Authority:       s.authority,
		LodgementNumber: approval.LodgementNumber,
		Kind:            string(approval.Kind),
		Status:          string(approval.Status),
		MooringCount:    len(approval.Moorings),
		StickerCount:    len(approval.Stickers),
	}
	if approval.Submitter != nil {
		docCtx.Holder = approval.Submitter.Username
	}
	if approval.StartDate != nil {
		docCtx.StartDate = approval.StartDate.Format("02/01/2006")
	}
	if approval.ExpiryDate != nil {
		docCtx.ExpiryDate = approval.ExpiryDate.Format("02/01/2006")
	}
	if approval.IssueDate != nil {
		docCtx.IssueDate = approval.IssueDate.Format("02/01/2006 15:04")
	}
	return docCtx
}

func (s *DocumentService) render(tmpl *template.Template, name string, docCtx documentContext) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, docCtx); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.outputDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
