package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structdoc/pdfmarkup/internal/config"
	"github.com/structdoc/pdfmarkup/internal/extract"
	"github.com/structdoc/pdfmarkup/internal/markup"
	"github.com/structdoc/pdfmarkup/internal/model"
	"github.com/structdoc/pdfmarkup/internal/reconstruct"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()

	srv, err := NewServer(
		cfg,
		extract.NewService(cfg.MaxFileSize, nil),
		reconstruct.NewService(nil),
		markup.NewSerializer(markup.VerbosityRich),
	)
	require.NoError(t, err)
	return srv
}

func TestNewServerRequiresServices(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewServer(cfg, nil, nil, nil)
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	router := testServer(t).Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func multipartBody(t *testing.T, fieldName, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestExtractRejectsNonPDF(t *testing.T) {
	router := testServer(t).Router()

	body, contentType := multipartBody(t, "file", "note.txt", []byte("plain text, not a pdf"))
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "not a PDF")
	assert.Equal(t, "validation_error", resp["kind"])
}

func TestExtractRequiresFileField(t *testing.T) {
	router := testServer(t).Router()

	body, contentType := multipartBody(t, "wrong-field", "x.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file uploaded")
}

func TestReconstructFromModel(t *testing.T) {
	router := testServer(t).Router()

	raw := []byte("%PDF-1.7 verbatim body")
	doc := model.Document{
		FormatVersion: model.FormatVersion,
		Metadata:      model.DocumentMetadata{NumPages: 0},
		Original: &model.OriginalPayload{
			Data:        base64.StdEncoding.EncodeToString(raw),
			FileName:    "source.pdf",
			ContentType: "application/pdf",
			ByteLength:  len(raw),
		},
	}
	payload, err := json.Marshal(doc)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/reconstruct-from-model", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, raw, rec.Body.Bytes(), "verbatim bytes must come back exactly")
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "source.pdf")
	assert.Equal(t, reconstruct.MethodVerbatim, rec.Header().Get("X-Conversion-Method"))
}

func TestReconstructFromModelWithoutOriginal(t *testing.T) {
	router := testServer(t).Router()

	req := httptest.NewRequest(http.MethodPost, "/reconstruct-from-model",
		strings.NewReader(`{"format_version": "1.1", "metadata": {"num_pages": 0}, "pages": null}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no original payload")
}

func TestReconstructFromMarkup(t *testing.T) {
	router := testServer(t).Router()

	markupText := `<?xml version="1.0" encoding="UTF-8"?>
<pdf-document version="1.1">
  <metadata><page-count>1</page-count></metadata>
  <pages>
    <page number="1" width="612" height="792">
      <text-blocks count="1">
        <text-block id="block-1-1" x="50" y="700" font-size="12" color="#000000">rebuilt text</text-block>
      </text-blocks>
      <images count="0"/>
    </page>
  </pages>
</pdf-document>`

	payload, err := json.Marshal(map[string]string{
		"xmlContent": markupText,
		"fileName":   "rebuilt.pdf",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/reconstruct-from-markup", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	assert.Equal(t, reconstruct.MethodNative, rec.Header().Get("X-Conversion-Method"))
}

func TestReconstructFromMarkupDegraded(t *testing.T) {
	router := testServer(t).Router()

	payload, err := json.Marshal(map[string]string{
		"xmlContent": "<pdf-document><broken",
		"fileName":   "doc.pdf",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/reconstruct-from-markup", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Degraded markup passthrough is still a successful download.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "doc.xml")
	assert.Equal(t, reconstruct.MethodMarkup, rec.Header().Get("X-Conversion-Method"))
}

func TestReconstructFromMarkupEmptyBody(t *testing.T) {
	router := testServer(t).Router()

	req := httptest.NewRequest(http.MethodPost, "/reconstruct-from-markup",
		strings.NewReader(`{"xmlContent": "", "fileName": "x.pdf"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no markup content")
}
